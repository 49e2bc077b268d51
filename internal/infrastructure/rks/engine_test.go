package rks

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/liverty-music/backend/internal/entity"
)

func TestChart(t *testing.T) {
	assert.Equal(t, 0.0, Chart(69.99, 15.0))
	assert.Equal(t, 0.0, Chart(0, 15.0))
	assert.Equal(t, 0.0, Chart(70.0, 15.0), "70.0 is the inclusive floor: rks must be zero exactly at the boundary")

	got := Chart(100.0, 15.0)
	assert.InDelta(t, 15.0, got, 1e-9)

	got = Chart(80.0, 13.0)
	assert.InDelta(t, 4.0123456790, got, 1e-6)
}

func TestSelectBestK(t *testing.T) {
	candidates := []Candidate{
		{Record: entity.Record{SongID: "a", Difficulty: entity.DifficultyIN, Acc: 100.0, Score: 1000000}, Constant: 15.0},
		{Record: entity.Record{SongID: "b", Difficulty: entity.DifficultyIN, Acc: 98.0, Score: 990000}, Constant: 14.0},
		{Record: entity.Record{SongID: "c", Difficulty: entity.DifficultyAT, Acc: 60.0, Score: 500000}, Constant: 16.0},
	}

	result := Select(candidates, 2)

	assert.Len(t, result.Best, 2)
	assert.Equal(t, "a", result.Best[0].SongID)
	assert.Equal(t, "b", result.Best[1].SongID)
	// c scored 0 (acc below 70) and is excluded by ranking, not by a hard filter.
}

func TestSelectAPTop3UnionWithMultiplicity(t *testing.T) {
	ap := entity.Record{SongID: "ap1", Difficulty: entity.DifficultyIN, Acc: 100.0, Score: 1000000}
	candidates := []Candidate{
		{Record: ap, Constant: 15.0},
	}

	result := Select(candidates, 27)

	assert.Len(t, result.Best, 1)
	assert.Len(t, result.APTop3, 1)
	// ap1 counted twice (Best and APTop3) per the no-dedup rule.
	assert.InDelta(t, Chart(100.0, 15.0), result.PlayerRks, 1e-9)
}

func TestSelectTieBreakStableOrder(t *testing.T) {
	candidates := []Candidate{
		{Record: entity.Record{SongID: "z", Difficulty: entity.DifficultyHD, Acc: 90.0, Score: 900000}, Constant: 10.0},
		{Record: entity.Record{SongID: "a", Difficulty: entity.DifficultyHD, Acc: 90.0, Score: 900000}, Constant: 10.0},
	}

	result := Select(candidates, 2)

	assert.Equal(t, "a", result.Best[0].SongID)
	assert.Equal(t, "z", result.Best[1].SongID)
}

func TestPushAccAdviceNoneAtCeiling(t *testing.T) {
	c := Candidate{Record: entity.Record{SongID: "x", Acc: 100.0}, Constant: 15.0}
	advice := PushAccAdvice(c, 10.0, 15.0)
	assert.Nil(t, advice)
}

func TestPushAccAdviceComputesRequiredAcc(t *testing.T) {
	c := Candidate{Record: entity.Record{SongID: "x", Acc: 90.0}, Constant: 15.0}
	advice := PushAccAdvice(c, 12.0, 15.0)
	if assert.NotNil(t, advice) {
		assert.Greater(t, advice.RequiredAcc, 90.0)
		assert.LessOrEqual(t, advice.RequiredAcc, 100.0)
	}
}
