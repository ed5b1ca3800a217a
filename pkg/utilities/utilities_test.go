package utilities

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var claimRefRx = regexp.MustCompile(`^CLM\d{8}[0-9A-F]{8}$`)

func TestNewClaimReference(t *testing.T) {
	now := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		ref := NewClaimReference(now)
		require.Regexp(t, claimRefRx, ref)
		assert.Equal(t, "CLM20260309", ref[:11])
		assert.False(t, seen[ref], "duplicate reference %s", ref)
		seen[ref] = true
	}
}

func TestNewSnowflakeIDUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		id := NewSnowflakeID()
		require.NotEmpty(t, id)
		require.False(t, seen[id])
		seen[id] = true
	}
}

func TestNewSnowflakeIDWithNodeFallback(t *testing.T) {
	// node ids are 10 bits; out of range falls back to a 27 char KSUID
	assert.Len(t, NewSnowflakeIDWithNode(5000), 27)
}

func TestWriteEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, http.StatusNotFound, "NOT_FOUND", "claim not found", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
	_, err := time.Parse(time.RFC3339, env.Timestamp)
	assert.NoError(t, err)

	rec = httptest.NewRecorder()
	WriteSuccess(rec, http.StatusOK, map[string]int{"n": 1}, "ok")
	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Equal(t, true, raw["success"])
	assert.Equal(t, "ok", raw["message"])
	assert.NotContains(t, raw, "error")
}

func TestLevelFromString(t *testing.T) {
	assert.Equal(t, "warn", levelFromString("warning").String())
	assert.Equal(t, "info", levelFromString("bogus").String())
}

func TestViolations(t *testing.T) {
	var v Violations
	v.Required("crop_name", "  ")
	v.Required("field_id", "f1")
	d := v.Date("sowing_date", "2026-06-01")
	bad := v.Date("harvest_date", "01/09/2026")
	v.Date("irrigation_date", "")

	assert.Equal(t, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), d)
	assert.True(t, bad.IsZero())

	var verr *ValidationError
	require.ErrorAs(t, v.Err(), &verr)
	assert.Equal(t, []FieldError{
		{Field: "crop_name", Message: "crop_name is required"},
		{Field: "harvest_date", Message: "harvest_date must be formatted YYYY-MM-DD"},
		{Field: "irrigation_date", Message: "irrigation_date is required"},
	}, verr.Fields)
	assert.Equal(t, "invalid fields: crop_name, harvest_date, irrigation_date", verr.Error())

	var none Violations
	assert.NoError(t, none.Err())
}

func TestTrimmed(t *testing.T) {
	blank, padded := "   ", "  loam "
	assert.Nil(t, Trimmed(nil))
	assert.Nil(t, Trimmed(&blank))
	assert.Equal(t, "loam", *Trimmed(&padded))
}

func TestMaxLen(t *testing.T) {
	var v Violations
	v.MaxLen("crop_type", "धान", 3)
	v.MaxLen("field_id", "abcd", 3)
	v.MaxLen("damage_type", "", 0)
	require.Len(t, v, 1)
	assert.Equal(t, FieldError{Field: "field_id", Message: "field_id must be at most 3 characters"}, v[0])
}
