package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/ppiankov/riskfeed/internal/model"
)

// DefaultSubject is the NATS subject alerts are published on
const DefaultSubject = "riskfeed.alerts"

// FileSink writes each pass's alerts to alerts_YYYYMMDD_HHMMSS.json in Dir
type FileSink struct {
	Dir    string
	logger logrus.FieldLogger
	now    func() time.Time
}

// NewFileSink creates a sink writing into dir
func NewFileSink(dir string, logger logrus.FieldLogger) *FileSink {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &FileSink{Dir: dir, logger: logger, now: time.Now}
}

// Publish writes alerts as an indented JSON array
func (s *FileSink) Publish(_ context.Context, alerts []model.Alert) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("create alerts directory: %w", err)
	}

	data, err := json.MarshalIndent(alerts, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal alerts: %w", err)
	}

	path := filepath.Join(s.Dir, "alerts_"+s.now().Format("20060102_150405")+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write alerts: %w", err)
	}

	s.logger.WithField("path", path).WithField("alerts", len(alerts)).Info("alerts saved")
	return nil
}

// Publisher is the part of a NATS connection the sink uses
type Publisher interface {
	Publish(subject string, data []byte) error
	Flush() error
}

// NATSSink publishes every alert as its own JSON message
type NATSSink struct {
	pub     Publisher
	conn    *nats.Conn // set when the sink owns the connection
	subject string
}

// NewNATSSink connects to url and publishes on subject
func NewNATSSink(url, subject string, logger logrus.FieldLogger) (*NATSSink, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if subject == "" {
		subject = DefaultSubject
	}

	nc, err := nats.Connect(url,
		nats.Name("riskfeed-monitor"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.WithError(err).Warn("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.WithField("url", nc.ConnectedUrl()).Info("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	logger.WithField("url", nc.ConnectedUrl()).Info("nats connected")
	return &NATSSink{pub: nc, conn: nc, subject: subject}, nil
}

// NewNATSSinkWith publishes through an existing publisher
func NewNATSSinkWith(pub Publisher, subject string) *NATSSink {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSSink{pub: pub, subject: subject}
}

// Publish sends each alert and flushes
func (s *NATSSink) Publish(_ context.Context, alerts []model.Alert) error {
	var errs []error
	for _, a := range alerts {
		data, err := json.Marshal(a)
		if err != nil {
			errs = append(errs, fmt.Errorf("marshal alert %s: %w", a.ID, err))
			continue
		}
		if err := s.pub.Publish(s.subject, data); err != nil {
			errs = append(errs, fmt.Errorf("publish alert %s: %w", a.ID, err))
		}
	}
	if err := s.pub.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("nats flush: %w", err))
	}
	return errors.Join(errs...)
}

// Close drains the connection if the sink opened it
func (s *NATSSink) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Drain()
}
