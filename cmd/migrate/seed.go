package main

import (
	"context"
	"fmt"
	"time"

	"github.com/maplewind/maplewind-api/internal/character/entity"
)

type seedCharacter struct {
	character   entity.Character
	settlements []entity.Settlement
}

type catalogWriter interface {
	InsertCharacter(ctx context.Context, c *entity.Character) error
	ReplaceSettlements(ctx context.Context, characterID int64, s []entity.Settlement) error
}

func ptr[T any](v T) *T { return &v }

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func demoCatalog() []seedCharacter {
	return []seedCharacter{
		{
			character: entity.Character{Name: "강민아", DetailTxt: ptr("담와"), Level: 265, Job: "아크", Server: "이브리스"},
			settlements: []entity.Settlement{
				{Title: "검은 마법사 클리어", Description: ptr("검은 마법사를 처음으로 클리어했습니다!"), AcquiredAt: day(2026, 8, 29)},
				{Title: "레벨 265 달성", Description: ptr("꾸준한 사냥 끝에 265 레벨을 달성했습니다."), AcquiredAt: day(2026, 7, 15)},
			},
		},
		{
			character: entity.Character{Name: "하늘빛", DetailTxt: ptr("하빛"), Level: 280, Job: "아델", Server: "스카니아"},
			settlements: []entity.Settlement{
				{Title: "스우 솔로 클리어", Description: ptr("스우를 솔로로 클리어하는 데 성공!"), AcquiredAt: day(2026, 8, 10)},
			},
		},
		{
			character: entity.Character{Name: "바람의검", Level: 255, Job: "나이트로드", Server: "루나"},
			settlements: []entity.Settlement{
				{Title: "유니온 8000 달성", Description: ptr("유니온 레벨 8000을 달성했습니다."), AcquiredAt: day(2026, 6, 20)},
			},
		},
	}
}

// seedCatalog upserts the demo characters by name and resets their
// settlements, so running it twice leaves the same rows.
func seedCatalog(ctx context.Context, w catalogWriter) (int, error) {
	catalog := demoCatalog()
	for i := range catalog {
		c := &catalog[i].character
		if err := w.InsertCharacter(ctx, c); err != nil {
			return i, fmt.Errorf("insert character %s: %w", c.Name, err)
		}
		if err := w.ReplaceSettlements(ctx, c.ID, catalog[i].settlements); err != nil {
			return i, fmt.Errorf("settlements for %s: %w", c.Name, err)
		}
	}
	return len(catalog), nil
}
