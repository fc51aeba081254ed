package services

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// firestore 依赖的 opencensus 在 init 中启动常驻 worker
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}

// 2024-03-27 是周三
var testNow = time.Date(2024, 3, 27, 12, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// failing 指定用途返回错误，其余使用默认回复
func failing(purposes ...string) *MockGenerator {
	return NewScriptedGenerator(func(req GenerateRequest) (string, error) {
		for _, p := range purposes {
			if req.Purpose == p {
				return "", errors.New("generator unavailable")
			}
		}
		return cannedResponse(req)
	})
}
