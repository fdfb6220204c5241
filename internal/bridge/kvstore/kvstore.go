// Package kvstore implements the string-to-string views backing the
// "input", "env", and "output" bridge modules (spec §4.3). input and env are
// read-only snapshots; output is the per-job inter-stage channel that
// persists across stages of the same job.
package kvstore

import "sync"

// ReadOnly is the backing store for "input" and "env": a fixed snapshot
// presented to the script as strings regardless of the orchestrator's
// declared type, per spec §4.3 and §9's resolved open question.
type ReadOnly struct {
	data map[string]string
}

func NewReadOnly(data map[string]string) *ReadOnly {
	if data == nil {
		data = map[string]string{}
	}
	return &ReadOnly{data: data}
}

func (r *ReadOnly) Get(name string) (string, bool) {
	v, ok := r.data[name]
	return v, ok
}

func (r *ReadOnly) Has(name string) bool {
	_, ok := r.data[name]
	return ok
}

func (r *ReadOnly) All() map[string]string {
	out := make(map[string]string, len(r.data))
	for k, v := range r.data {
		out[k] = v
	}
	return out
}

func (r *ReadOnly) Keys() []string {
	out := make([]string, 0, len(r.data))
	for k := range r.data {
		out = append(out, k)
	}
	return out
}

// ReadWrite is the backing store for "output": a mutable map that persists
// across stages of one job and becomes JobResult.Outputs at termination.
type ReadWrite struct {
	mu   sync.Mutex
	data map[string]string
}

func NewReadWrite() *ReadWrite {
	return &ReadWrite{data: make(map[string]string)}
}

func (w *ReadWrite) Set(name, value string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.data[name] = value
}

func (w *ReadWrite) Get(name string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	v, ok := w.data[name]
	return v, ok
}

func (w *ReadWrite) Has(name string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.data[name]
	return ok
}

func (w *ReadWrite) All() map[string]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]string, len(w.data))
	for k, v := range w.data {
		out[k] = v
	}
	return out
}

func (w *ReadWrite) Keys() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.data))
	for k := range w.data {
		out = append(out, k)
	}
	return out
}

func (w *ReadWrite) Clear(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.data, name)
}

func (w *ReadWrite) ClearAll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.data = make(map[string]string)
}
