package protocol

import (
	"encoding/json"
	"time"
)

// LogLevel mirrors the teacher's mcp/logging.go 8-level scale (the
// `window/logMessage`-adjacent vocabulary every JSON-RPC editor
// protocol shares).
type LogLevel string

const (
	LogLevelDebug     LogLevel = "debug"
	LogLevelInfo      LogLevel = "info"
	LogLevelNotice    LogLevel = "notice"
	LogLevelWarning   LogLevel = "warning"
	LogLevelError     LogLevel = "error"
	LogLevelCritical  LogLevel = "critical"
	LogLevelAlert     LogLevel = "alert"
	LogLevelEmergency LogLevel = "emergency"
)

// LogData is free-form structured context attached to a log message.
type LogData map[string]any

var logLevelOrder = map[LogLevel]int{
	LogLevelDebug:     0,
	LogLevelInfo:      1,
	LogLevelNotice:    2,
	LogLevelWarning:   3,
	LogLevelError:     4,
	LogLevelCritical:  5,
	LogLevelAlert:     6,
	LogLevelEmergency: 7,
}

func shouldEmitLog(min, level LogLevel) bool {
	minRank, ok := logLevelOrder[min]
	if !ok {
		minRank = logLevelOrder[LogLevelInfo]
	}
	levelRank, ok := logLevelOrder[level]
	if !ok {
		levelRank = logLevelOrder[LogLevelInfo]
	}
	return levelRank >= minRank
}

// SetLogLevel changes the server's minimum emitted log level (the
// `$/setTrace`-equivalent this protocol exposes via configuration
// rather than its own request, since no client-settable method is
// named in §2).
func (s *Server) SetLogLevel(level LogLevel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logLevel = level
}

func (s *Server) sendLogNotification(level LogLevel, message string, data LogData) {
	s.mu.Lock()
	min := s.logLevel
	s.mu.Unlock()
	if !shouldEmitLog(min, level) {
		return
	}
	if data == nil {
		data = make(LogData)
	}
	data["message"] = message
	data["timestamp"] = time.Now().Format(time.RFC3339)

	s.sendNotification("window/logMessage", map[string]any{
		"type":    logLevelToLSPType(level),
		"message": message,
		"data":    data,
	})
}

// logLevelToLSPType maps the 8-level scale onto LSP's 4-level
// MessageType (Error=1, Warning=2, Info=3, Log=4), the closest
// standard field an editor client actually renders.
func logLevelToLSPType(level LogLevel) int {
	switch level {
	case LogLevelError, LogLevelCritical, LogLevelAlert, LogLevelEmergency:
		return 1
	case LogLevelWarning:
		return 2
	case LogLevelNotice, LogLevelInfo:
		return 3
	default:
		return 4
	}
}

func (s *Server) LogInfo(message string, data ...LogData)  { s.log(LogLevelInfo, message, data) }
func (s *Server) LogWarn(message string, data ...LogData)  { s.log(LogLevelWarning, message, data) }
func (s *Server) LogError(message string, data ...LogData) { s.log(LogLevelError, message, data) }
func (s *Server) LogDebug(message string, data ...LogData) { s.log(LogLevelDebug, message, data) }

func (s *Server) log(level LogLevel, message string, data []LogData) {
	var d LogData
	if len(data) > 0 {
		d = data[0]
	}
	s.sendLogNotification(level, message, d)
}

func (s *Server) sendNotification(method string, params any) {
	raw, err := json.Marshal(params)
	if err != nil {
		return
	}
	s.send(NotificationMessage{JSONRPC: JSONRPCVersion, Method: method, Params: raw})
}
