package gateway

import "sync"

// Notice is one user-visible alert produced by a workflow operation.
type Notice struct {
	Level   string `json:"level"` // "success", "error", "info"
	Message string `json:"message"`
}

// noticeCollector implements emr.Notifier and buffers alerts so the handler
// that triggered the operation can return them in its response.
type noticeCollector struct {
	mu      sync.Mutex
	notices []Notice
}

func (nc *noticeCollector) add(level, msg string) {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	nc.notices = append(nc.notices, Notice{Level: level, Message: msg})
}

func (nc *noticeCollector) Success(msg string) { nc.add("success", msg) }
func (nc *noticeCollector) Error(msg string)   { nc.add("error", msg) }
func (nc *noticeCollector) Info(msg string)    { nc.add("info", msg) }

// drain returns and clears the buffered notices.
func (nc *noticeCollector) drain() []Notice {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	drained := nc.notices
	nc.notices = nil
	return drained
}
