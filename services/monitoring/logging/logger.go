package logging

import (
	"bytes"
	"encoding/json"
	"io"
	"log/syslog"
	"time"

	"github.com/SwiftFiat/SwiftFiat-Payouts/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	logrusSyslog "github.com/sirupsen/logrus/hooks/syslog"
)

type Logger struct {
	*logrus.Logger
}

type responseBodyWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (r responseBodyWriter) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

// NewLogger returns a JSON logger at debug level with no remote hooks
func NewLogger() *Logger {
	log := logrus.New()
	log.SetLevel(logrus.DebugLevel)
	log.SetFormatter(&logrus.JSONFormatter{})

	return &Logger{
		log,
	}
}

// NewLoggerWithConfig ships logs to Papertrail when it is configured
func NewLoggerWithConfig(c *utils.Config) *Logger {
	l := NewLogger()
	if c.Env == "production" {
		l.SetLevel(logrus.InfoLevel)
	}

	if c.Papertrail == "" {
		return l
	}

	hook, err := logrusSyslog.NewSyslogHook("udp", c.Papertrail, syslog.LOG_INFO, c.PapertrailAppName)
	if err != nil {
		l.Error("Unable to connect to Papertrail")
	} else {
		l.Hooks.Add(hook)
	}

	return l
}

// NewDiscardLogger is used by tests and quiet CLI runs
func NewDiscardLogger() *Logger {
	l := NewLogger()
	l.SetOutput(io.Discard)
	return l
}

func (l *Logger) LoggingMiddleWare() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// Read the request body
		var requestBody []byte
		if c.Request.Body != nil {
			requestBody, _ = c.GetRawData()
			c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))
		}

		// Create a custom response writer to capture the response body
		w := &responseBodyWriter{body: &bytes.Buffer{}, ResponseWriter: c.Writer}
		c.Writer = w

		// Process request
		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		fields := logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   statusCode,
			"duration": duration,
		}

		// Request bodies carry full account numbers, keep only the shape
		var requestJson map[string]interface{}
		if len(requestBody) > 0 && len(requestBody) < 250 {
			if err := json.Unmarshal(requestBody, &requestJson); err != nil {
				l.Log(logrus.DebugLevel, "error unmarshalling requestBody, request may not be JSON")
			} else {
				if acct, ok := requestJson["account_number"].(string); ok {
					requestJson["account_number"] = utils.MaskAccountNumber(acct)
				}
				fields["request"] = requestJson
			}
		}

		if statusCode >= 400 {
			fields["response_bytes"] = w.body.Len()
		}

		l.WithFields(fields).Info("Request-Response")
	}
}
