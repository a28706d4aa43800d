package async

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrom(t *testing.T) {
	r := From(5, nil)
	assert.True(t, r.OK())
	assert.Equal(t, 5, r.Value)

	boom := errors.New("boom")
	r = From(0, boom)
	assert.True(t, r.Failed())
	assert.ErrorIs(t, r.Err, boom)
}

func TestZeroValueIsPending(t *testing.T) {
	var r Result[string]
	assert.True(t, r.IsPending())
	assert.Equal(t, "pending", r.Status.String())
}

func TestGo_IndependentOutcomes(t *testing.T) {
	a := Go(func() (string, error) { return "profile", nil })
	b := Go(func() (int, error) { return 0, errors.New("analytics down") })

	ra, rb := <-a, <-b
	assert.True(t, ra.OK())
	assert.Equal(t, "profile", ra.Value)
	assert.True(t, rb.Failed())
	assert.EqualError(t, rb.Err, "analytics down")
}
