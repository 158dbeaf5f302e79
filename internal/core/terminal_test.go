package core_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pos-core/internal/core"
)

func TestValidateExpiration(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		v := now.Add(d)
		return &v
	}

	st := core.ValidateExpiration(nil, now)
	assert.False(t, st.Expired)
	assert.Equal(t, -1, st.RemainingDays)

	st = core.ValidateExpiration(at(-time.Hour), now)
	assert.True(t, st.Expired)
	assert.Contains(t, st.Message, "2026-03-02")

	st = core.ValidateExpiration(at(3*24*time.Hour), now)
	assert.False(t, st.Expired)
	assert.True(t, st.ExpiringSoon)
	assert.Equal(t, 3, st.RemainingDays)

	st = core.ValidateExpiration(at(7*24*time.Hour), now)
	assert.True(t, st.ExpiringSoon, "the seventh day still warns")

	st = core.ValidateExpiration(at(30*24*time.Hour), now)
	assert.False(t, st.ExpiringSoon)
	assert.Equal(t, 30, st.RemainingDays)
}

func TestTerminalMode(t *testing.T) {
	assert.Equal(t, core.ModeLive, (&core.TerminalInfo{}).Mode())
	assert.Equal(t, core.ModeTraining, (&core.TerminalInfo{IsTrainMode: true}).Mode())
}

func TestFormatOrderNumber(t *testing.T) {
	assert.Equal(t, "000000000042", core.FormatOrderNumber(42))
	inv := int64(1234)
	assert.Equal(t, "000000001234", (&core.Order{InvoiceNo: &inv}).InvoiceNumber())
	assert.Equal(t, "000000000000", (&core.Order{}).InvoiceNumber())
}
