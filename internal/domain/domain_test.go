package domain_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/usfbank/surveyweb/internal/domain"
)

func TestTotalScore(t *testing.T) {
	questions := []domain.Question{
		{ID: 10, Weight: 1},
		{ID: 11, Weight: 3},
		{ID: 12, Weight: 5},
	}

	tests := map[string]struct {
		answers domain.Answers
		want    int64
	}{
		"no answers scores zero": {
			answers: domain.Answers{},
			want:    0,
		},
		"unanswered questions contribute zero": {
			answers: domain.Answers{10: 2, 12: 3},
			want:    1*2 + 5*3,
		},
		"all answered": {
			answers: domain.Answers{10: 3, 11: 3, 12: 3},
			want:    3 + 9 + 15,
		},
		"answers for unknown questions are ignored": {
			answers: domain.Answers{99: 3, 11: 1},
			want:    3,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got := domain.TotalScore(questions, tt.answers)
			assert.True(t, decimal.NewFromInt(tt.want).Equal(got), "want %d, got %s", tt.want, got)
		})
	}
}

func TestTotalScore_Contribution(t *testing.T) {
	for w := 1; w <= 10; w++ {
		for a := domain.AnswerRarely; a <= domain.AnswerFrequently; a++ {
			got := domain.TotalScore([]domain.Question{{ID: 1, Weight: w}}, domain.Answers{1: a})
			assert.Equal(t, int64(w*a), got.IntPart(), "weight=%d answer=%d", w, a)
		}
	}
}

func TestAnswers_Payload(t *testing.T) {
	p := domain.Answers{7: 1, 42: 3}.Payload()
	assert.Equal(t, map[string]int{"7": 1, "42": 3}, p)
}

func TestValidAnswer(t *testing.T) {
	assert.False(t, domain.ValidAnswer(0))
	assert.True(t, domain.ValidAnswer(1))
	assert.True(t, domain.ValidAnswer(3))
	assert.False(t, domain.ValidAnswer(4))
}

func TestIdentity_IsAdmin(t *testing.T) {
	assert.True(t, domain.Identity{LoggedIn: true, User: "ADMIN"}.IsAdmin())
	assert.False(t, domain.Identity{LoggedIn: true, User: "JDOE"}.IsAdmin())
	assert.False(t, domain.Identity{User: "ADMIN"}.IsAdmin())
}
