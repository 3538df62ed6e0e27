package entity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettlementDateEncoding(t *testing.T) {
	img := "https://cdn.example.com/a.png"
	s := Settlement{ID: 1, CharacterID: 2, Title: "Zakum", ImgURL: &img, AcquiredAt: time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC)}

	raw, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"character_id":2,"title":"Zakum","description":null,"img_url":"https://cdn.example.com/a.png","acquired_at":"2025-07-04"}`, string(raw))

	var back Settlement
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, s, back)
}

func TestSettlementRejectsBadDate(t *testing.T) {
	var s Settlement
	assert.Error(t, json.Unmarshal([]byte(`{"id":1,"acquired_at":"07/04/2025"}`), &s))
}
