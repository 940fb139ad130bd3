//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"synergy/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Used for supervision logs, avoiding a manual name on every Worker.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is the outbound side of one live connection.
// Consume must not block the caller for longer than ctx allows.
type EventSink interface {
	Consume(ctx context.Context, e event.Envelope) error
}

// IRegistry tracks the live connections of every project group.
type IRegistry interface {
	Join(projectID, connectionID string, sink EventSink)
	Leave(projectID, connectionID string) bool
	Sinks(projectID string) []EventSink
	Size(projectID string) int
	Connections() int
}
