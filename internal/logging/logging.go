package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger output.
type Options struct {
	Debug   bool
	ToFile  bool
	Dir     string
	MaxSize int // megabytes
}

// Setup configures the global logrus logger and returns a closer for the file sink.
func Setup(opts Options) io.Closer {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	if opts.Debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
	if !opts.ToFile {
		log.SetOutput(os.Stdout)
		return nopCloser{}
	}

	maxSize := opts.MaxSize
	if maxSize <= 0 {
		maxSize = 50
	}
	dir := opts.Dir
	if dir == "" {
		dir = "logs"
	}
	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(dir, "server.log"),
		MaxSize:    maxSize,
		MaxBackups: 5,
		MaxAge:     14,
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stdout, rotator))
	return rotator
}

// GinLogger emits one structured entry per request.
func GinLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		status := c.Writer.Status()
		entry := log.WithFields(log.Fields{
			"method":   c.Request.Method,
			"path":     path,
			"status":   status,
			"latency":  time.Since(start).String(),
			"clientIP": c.ClientIP(),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}
		switch {
		case status >= 500:
			entry.Error("request")
		case status >= 400:
			entry.Warn("request")
		default:
			entry.Debug("request")
		}
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
