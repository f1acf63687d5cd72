package discounts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func pct(v int) *int     { return &v }
func amt(v int64) *int64 { return &v }
func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestApply(t *testing.T) {
	cases := []struct {
		name    string
		price   int64
		d       *Discount
		want    int64
		applied bool
	}{
		{"no discount", 100, nil, 100, false},
		{"half off", 100, &Discount{Percentage: pct(50)}, 50, true},
		{"percentage floors", 99, &Discount{Percentage: pct(50)}, 49, true},
		{"flat amount", 100, &Discount{Amount: amt(30)}, 70, true},
		{"amount above price is ignored", 100, &Discount{Amount: amt(150)}, 100, false},
		{"amount equal to price is ignored", 100, &Discount{Amount: amt(100)}, 100, false},
		{"full percentage is ignored", 100, &Discount{Percentage: pct(100)}, 100, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, applied := Apply(tc.price, tc.d)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.applied, applied)
			assert.LessOrEqual(t, got, tc.price)
			assert.Greater(t, got, int64(0))
		})
	}
}

func TestIsActiveAt(t *testing.T) {
	d := &Discount{Active: true, StartDate: day("2024-03-01"), EndDate: day("2024-03-10")}

	assert.False(t, d.IsActiveAt(day("2024-02-29").Add(23*time.Hour)), "before start")
	assert.True(t, d.IsActiveAt(day("2024-03-01")), "start is inclusive")
	assert.True(t, d.IsActiveAt(day("2024-03-10").Add(23*time.Hour+59*time.Minute)), "end day counts until midnight")
	assert.False(t, d.IsActiveAt(day("2024-03-11")), "after end of day")

	d.Active = false
	assert.False(t, d.IsActiveAt(day("2024-03-05")))

	var none *Discount
	assert.False(t, none.IsActiveAt(day("2024-03-05")))
}

func TestReduction(t *testing.T) {
	assert.Equal(t, int64(100), (&Discount{Percentage: pct(10)}).Reduction(1000))
	assert.Equal(t, int64(50), (&Discount{Percentage: pct(10), UptoLimit: amt(50)}).Reduction(1000))
	assert.Equal(t, int64(300), (&Discount{Amount: amt(500)}).Reduction(300), "never more than the total")
}

func TestInputNormalize(t *testing.T) {
	now := day("2024-03-01")
	base := func() Input {
		return Input{Name: " Eid sale ", Percentage: pct(20), EndDate: day("2024-03-31"), Brands: []string{" Nike "}}
	}

	t.Run("ok", func(t *testing.T) {
		in := base()
		assert.NoError(t, in.normalize(now))
		assert.Equal(t, "Eid sale", in.Name)
		assert.Equal(t, now, in.StartDate)
		assert.Equal(t, []string{"nike"}, in.Brands)
	})

	cases := map[string]struct {
		mutate func(*Input)
		want   error
	}{
		"missing name":      {func(in *Input) { in.Name = "" }, ErrNameRequired},
		"neither value":     {func(in *Input) { in.Percentage = nil }, ErrValueRequired},
		"both values":       {func(in *Input) { in.Amount = amt(10) }, ErrValueAmbiguous},
		"percentage > 100":  {func(in *Input) { in.Percentage = pct(120) }, ErrPercentageRange},
		"zero amount":       {func(in *Input) { in.Percentage, in.Amount = nil, amt(0) }, ErrAmountNotPositive},
		"missing end":       {func(in *Input) { in.EndDate = time.Time{} }, ErrEndDateRequired},
		"end before start":  {func(in *Input) { in.StartDate = day("2024-04-02") }, ErrEndBeforeStart},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			in := base()
			tc.mutate(&in)
			assert.ErrorIs(t, in.normalize(now), tc.want)
		})
	}
}
