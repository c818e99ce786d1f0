package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportRoundTrip(t *testing.T) {
	rate := 0.5
	in := &FullReport{
		Metadata: ReportMetadata{
			ReportID:    "rep-1",
			SiteID:      "site-1",
			RunID:       "run-1",
			Version:     ReportVersion,
			CompanyName: "Acme",
			Domain:      "acme.com",
			CreatedAt:   time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC),
			Limitations: []string{"observation disabled"},
		},
		Score: ScoreSection{
			TotalScore:     71.23,
			Grade:          "C-",
			TotalQuestions: 15,
			CategoryScores: map[Category]float64{CategoryIdentity: 80.12},
		},
		Fixes: FixSection{
			TotalFixes: 1,
			Fixes: []ReportFix{{
				ID:              "fix-1",
				ReasonCode:      ReasonMissingPricing,
				EstimatedImpact: FixImpactRange{Min: 4, Expected: 8, Max: 12},
			}},
		},
		ScoreConservative: 60,
		ScoreTypical:      71,
		ScoreGenerous:     78,
		MentionRate:       &rate,
	}

	data, err := MarshalReport(in)
	require.NoError(t, err)

	out, err := UnmarshalReport(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestUnmarshalReport_RefusesOtherVersions(t *testing.T) {
	for _, version := range []string{"1.0", "2.0", ""} {
		data, err := MarshalReport(&FullReport{Metadata: ReportMetadata{Version: version}})
		require.NoError(t, err)

		_, err = UnmarshalReport(data)
		require.Error(t, err, "version %q", version)
		assert.Contains(t, err.Error(), "unsupported report version")
	}
}

func TestUnmarshalReport_RejectsGarbage(t *testing.T) {
	_, err := UnmarshalReport([]byte("{not json"))
	require.Error(t, err)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 71.23, Round2(71.234))
	assert.Equal(t, 71.24, Round2(71.236))
	assert.Equal(t, 0.0, Round2(0))
	assert.Equal(t, 100.0, Round2(100))
}

func TestRound3(t *testing.T) {
	assert.Equal(t, 0.667, Round3(2.0/3.0))
	assert.Equal(t, 0.235, Round3(0.23456))
	assert.Equal(t, 1.0, Round3(1))
}

func TestValidReasonCode(t *testing.T) {
	for _, code := range ReasonCodes() {
		assert.True(t, ValidReasonCode(code), string(code))
	}
	assert.False(t, ValidReasonCode("MADE_UP"))
}

func TestConfidenceNumeric(t *testing.T) {
	assert.Equal(t, 1.0, ConfidenceNumeric(ConfidenceHigh))
	assert.Equal(t, 0.6, ConfidenceNumeric(ConfidenceMedium))
	assert.Equal(t, 0.3, ConfidenceNumeric(ConfidenceLow))
	assert.Equal(t, 0.3, ConfidenceNumeric(""))
}
