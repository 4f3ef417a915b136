// Package testutil provides test doubles and fixtures for the utf-cast
// packages. Mocks use testify/mock; configure them with .On(...).Return(...).
package testutil

import (
	"io/fs"
	"sync"

	"github.com/stackvity/utf-cast/pkg/converter"
	"github.com/stackvity/utf-cast/pkg/converter/encoding"
	"github.com/stretchr/testify/mock"
)

// MockObserver is a testify mock of converter.Observer.
type MockObserver struct {
	mock.Mock
}

// OnProgress mocks the OnProgress method.
func (m *MockObserver) OnProgress(record converter.FileRecord) {
	m.Called(record)
}

// OnFinished mocks the OnFinished method.
func (m *MockObserver) OnFinished(info converter.FinishInfo) {
	m.Called(info)
}

// MockDetector is a testify mock of encoding.Detector.
type MockDetector struct {
	mock.Mock
}

// Detect mocks the Detect method.
func (m *MockDetector) Detect(path string) encoding.Detection {
	args := m.Called(path)
	detection, _ := args.Get(0).(encoding.Detection)
	return detection
}

// MockConverter is a testify mock of encoding.Converter.
type MockConverter struct {
	mock.Mock
}

// Transcode mocks the Transcode method.
func (m *MockConverter) Transcode(path string, source, target encoding.Encoding, writeBOM bool) error {
	args := m.Called(path, source.Name, target.Name, writeBOM)
	return args.Error(0)
}

// MockFileWriter is a testify mock of encoding.FileWriter.
type MockFileWriter struct {
	mock.Mock
}

// WriteFile mocks the WriteFile method.
func (m *MockFileWriter) WriteFile(path string, data []byte, perm fs.FileMode) error {
	args := m.Called(path, data, perm)
	return args.Error(0)
}

// RecordingObserver keeps every notification it receives. Finished is closed
// after the first OnFinished.
type RecordingObserver struct {
	mu          sync.Mutex
	records     []converter.FileRecord
	finishes    []converter.FinishInfo
	lateRecords int // OnProgress calls seen after OnFinished
	finished    chan struct{}
	once        sync.Once
}

// NewRecordingObserver returns an empty RecordingObserver.
func NewRecordingObserver() *RecordingObserver {
	return &RecordingObserver{finished: make(chan struct{})}
}

// OnProgress implements converter.Observer.
func (o *RecordingObserver) OnProgress(record converter.FileRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.finishes) > 0 {
		o.lateRecords++
	}
	o.records = append(o.records, record)
}

// OnFinished implements converter.Observer.
func (o *RecordingObserver) OnFinished(info converter.FinishInfo) {
	o.mu.Lock()
	o.finishes = append(o.finishes, info)
	o.mu.Unlock()
	o.once.Do(func() { close(o.finished) })
}

// Finished is closed once OnFinished has been called.
func (o *RecordingObserver) Finished() <-chan struct{} { return o.finished }

// Records returns a copy of the received records.
func (o *RecordingObserver) Records() []converter.FileRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]converter.FileRecord(nil), o.records...)
}

// Finishes returns every FinishInfo received.
func (o *RecordingObserver) Finishes() []converter.FinishInfo {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]converter.FinishInfo(nil), o.finishes...)
}

// LateRecords counts records delivered after a finish notification.
func (o *RecordingObserver) LateRecords() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lateRecords
}

// Paths returns the FullPath of each received record in order.
func (o *RecordingObserver) Paths() []string {
	records := o.Records()
	paths := make([]string, len(records))
	for i, r := range records {
		paths[i] = r.FullPath
	}
	return paths
}
