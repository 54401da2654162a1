package limiter

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMethodLimiter(t *testing.T) {
	l := NewMethodLimiter().AddBuckets(BucketRule{
		Key:          "/api/contract/ingest",
		FillInterval: time.Hour,
		Capacity:     2,
		Quantum:      1,
	})

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("POST", "/api/contract/ingest?lang=en", nil)
	key := l.Key(c)
	assert.Equal(t, "/api/contract/ingest", key)

	bucket, ok := l.GetBucket(key)
	require.True(t, ok)
	assert.EqualValues(t, 1, bucket.TakeAvailable(1))
	assert.EqualValues(t, 1, bucket.TakeAvailable(1))
	assert.EqualValues(t, 0, bucket.TakeAvailable(1))

	_, ok = l.GetBucket("/api/contracts")
	assert.False(t, ok)
}

func TestRuleFromRate(t *testing.T) {
	_, ok := RuleFromRate("/x", 0, 10)
	assert.False(t, ok)

	rule, ok := RuleFromRate("/x", 20, 0)
	require.True(t, ok)
	assert.Equal(t, 50*time.Millisecond, rule.FillInterval)
	assert.EqualValues(t, 21, rule.Capacity)
}
