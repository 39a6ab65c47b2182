package sink

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/LdDl/fovlog-go/fovlog"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
)

// DefaultSubject prefixes NATS subjects when none is configured
const DefaultSubject = "fovlog.records"

// Publisher is the part of *nats.Conn used by NATS sink
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATS publishes every batch as one JSON array to "<subject>.<observer>".
// Batches mixing observers are split per observer preserving record order.
type NATS struct {
	publisher Publisher
	subject   string
	conn      *nats.Conn
}

// NewNATS wraps existing publisher. Closing the sink does not close the publisher.
func NewNATS(publisher Publisher, subject string) *NATS {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATS{publisher: publisher, subject: subject}
}

// ConnectNATS dials server at url and owns the connection
func ConnectNATS(url, subject string) (*NATS, error) {
	conn, err := nats.Connect(url, nats.Name("fovlog"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, errors.Wrapf(err, "Can't connect to NATS '%s'", url)
	}
	sink := NewNATS(conn, subject)
	sink.conn = conn
	return sink, nil
}

// Subject returns subject used for records of observer
func (sink *NATS) Subject(observer string) string {
	return sink.subject + "." + subjectToken(observer)
}

// Append implements Sink
func (sink *NATS) Append(ctx context.Context, records []fovlog.LogRecord) error {
	if len(records) == 0 {
		return nil
	}
	order := make([]string, 0, 1)
	groups := make(map[string][]fovlog.LogRecord)
	for _, record := range records {
		if _, ok := groups[record.Observer]; !ok {
			order = append(order, record.Observer)
		}
		groups[record.Observer] = append(groups[record.Observer], record)
	}
	for _, observer := range order {
		if err := ctx.Err(); err != nil {
			return err
		}
		b, err := json.Marshal(groups[observer])
		if err != nil {
			return errors.Wrap(err, "Can't marshal records")
		}
		if err := sink.publisher.Publish(sink.Subject(observer), b); err != nil {
			return errors.Wrapf(fovlog.ErrLogWrite, "publish: %v", err)
		}
	}
	return nil
}

// Close flushes and drains owned connection
func (sink *NATS) Close() error {
	if sink.conn == nil {
		return nil
	}
	if err := sink.conn.FlushTimeout(2 * time.Second); err != nil {
		sink.conn.Close()
		return errors.Wrap(err, "Can't flush NATS connection")
	}
	return sink.conn.Drain()
}

// subjectToken makes observer name usable as a single subject token
func subjectToken(observer string) string {
	if observer == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, observer)
}
