package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFrequencyInMonth(t *testing.T) {
	admissionMonth := time.March
	admissionYear := 2025

	assert.True(t, FrequencyMonthly.InMonth(time.June, 2025, admissionMonth, admissionYear))

	// Yearly bills in January, plus the admission month of the first year.
	assert.True(t, FrequencyYearly.InMonth(time.January, 2026, admissionMonth, admissionYear))
	assert.True(t, FrequencyYearly.InMonth(time.March, 2025, admissionMonth, admissionYear))
	assert.False(t, FrequencyYearly.InMonth(time.March, 2026, admissionMonth, admissionYear))
	assert.False(t, FrequencyYearly.InMonth(time.June, 2025, admissionMonth, admissionYear))

	for _, m := range []time.Month{time.January, time.April, time.July, time.October} {
		assert.True(t, FrequencyQuarterly.InMonth(m, 2025, admissionMonth, admissionYear))
	}
	assert.False(t, FrequencyQuarterly.InMonth(time.May, 2025, admissionMonth, admissionYear))

	assert.True(t, FrequencySemester.InMonth(time.January, 2025, admissionMonth, admissionYear))
	assert.True(t, FrequencySemester.InMonth(time.July, 2025, admissionMonth, admissionYear))
	assert.False(t, FrequencySemester.InMonth(time.March, 2025, admissionMonth, admissionYear))

	assert.True(t, FrequencyOneTime.InMonth(time.March, 2025, admissionMonth, admissionYear))
	assert.False(t, FrequencyOneTime.InMonth(time.March, 2026, admissionMonth, admissionYear))
	assert.False(t, FrequencyOneTime.InMonth(time.April, 2025, admissionMonth, admissionYear))
}

func TestFrequencyValid(t *testing.T) {
	assert.True(t, FrequencyMonthly.Valid())
	assert.False(t, Frequency("WEEKLY").Valid())
}
