package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newBufferLogger(level zapcore.Level) (*Logger, *bytes.Buffer) {
	var logBuffer bytes.Buffer
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.Lock(zapcore.AddSync(&logBuffer)),
		level,
	)
	return &Logger{SugaredLogger: zap.New(core).Sugar()}, &logBuffer
}

func TestNew_DefaultConfiguration(t *testing.T) {
	logger := New()
	assert.NotNil(t, logger)
	assert.NotNil(t, logger.SugaredLogger)
	assert.NotNil(t, logger.Zap())
}

func TestNewWithLevel(t *testing.T) {
	logger, err := NewWithLevel("debug")
	require.NoError(t, err)
	assert.True(t, logger.Desugar().Core().Enabled(zapcore.DebugLevel))

	logger, err = NewWithLevel("warn")
	require.NoError(t, err)
	assert.False(t, logger.Desugar().Core().Enabled(zapcore.InfoLevel))

	_, err = NewWithLevel("chatty")
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zapcore.Level
		wantErr  bool
	}{
		{input: "", expected: zapcore.InfoLevel},
		{input: "debug", expected: zapcore.DebugLevel},
		{input: "INFO", expected: zapcore.InfoLevel},
		{input: "error", expected: zapcore.ErrorLevel},
		{input: "verbose", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			lvl, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, lvl)
		})
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	logger, buf := newBufferLogger(zapcore.WarnLevel)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	output := buf.String()
	assert.NotContains(t, output, "debug message")
	assert.NotContains(t, output, "info message")
	assert.Equal(t, 1, strings.Count(output, "warn message"))
	assert.Equal(t, 1, strings.Count(output, "error message"))
}

func TestLogger_WithRequestID(t *testing.T) {
	logger, buf := newBufferLogger(zapcore.InfoLevel)

	logger.WithRequestID("req-123").Infow("Request started", "method", "POST")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-123", entry["request_id"])
	assert.Equal(t, "POST", entry["method"])
	assert.Equal(t, "Request started", entry["msg"])
}

func TestLogger_ChainedContext(t *testing.T) {
	logger, buf := newBufferLogger(zapcore.InfoLevel)

	logger.WithRequestID("req-456").WithCorrelationID("corr-789").Infow("chained context test")

	output := buf.String()
	assert.Contains(t, output, "chained context test")
	assert.Contains(t, output, `"request_id":"req-456"`)
	assert.Contains(t, output, `"correlation_id":"corr-789"`)
}

func TestLogger_ThreadSafety(t *testing.T) {
	logger, buf := newBufferLogger(zapcore.InfoLevel)

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func(id int) {
			logger.Infow("concurrent test", "id", id)
			done <- true
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	assert.Equal(t, 10, strings.Count(buf.String(), `"msg":"concurrent test"`))
}

func TestLogger_FormattedLogging(t *testing.T) {
	logger, buf := newBufferLogger(zapcore.InfoLevel)

	logger.Infof("formatted message with %s and %d", "string", 42)

	assert.Contains(t, buf.String(), "formatted message with string and 42")
}
