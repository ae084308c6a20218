//go:generate go run go.uber.org/mock/mockgen -source=dispatcher.go -destination=mocks/mock_dispatcher.go -package=mocks

package notification

import (
	"context"
	"encoding/json"
	"net/mail"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/Shilpa0612/school-app-backend-sub003/core"
	"github.com/Shilpa0612/school-app-backend-sub003/core/user"
)

const (
	defaultWorkers     = 8
	defaultPushTimeout = 8 * time.Second
)

// PushErrorClass classifies a failed push attempt.
type PushErrorClass string

const (
	PushInvalidToken PushErrorClass = "invalid_token" // the registration must be deactivated
	PushUnavailable  PushErrorClass = "unavailable"
	PushRejected     PushErrorClass = "rejected"
	PushTimeout      PushErrorClass = "timeout"
)

type PushResult struct {
	Success    bool
	ErrorClass PushErrorClass
	Detail     string
}

type (
	// LiveSender delivers a frame to every open connection of a user.
	LiveSender interface {
		SendIfConnected(userID string, frame []byte) bool
	}

	// PushTransport sends one push notification. It must honour ctx's deadline.
	PushTransport interface {
		SendPush(ctx context.Context, token string, platform Platform, payload Payload) PushResult
	}

	// LiveFrame is the JSON document written to live connections.
	LiveFrame struct {
		Kind         string  `json:"kind"`
		Notification Payload `json:"notification"`
	}

	DispatcherOption func(*Dispatcher)

	// Dispatcher delivers one payload to a RecipientSet: live, push, then persistence,
	// with a bounded number of recipients in flight.
	Dispatcher struct {
		store       Store
		devices     DeviceStore
		live        LiveSender
		push        PushTransport
		pushTimeout time.Duration
		mail        core.EmailService
		users       user.Repository
		appName     string
		workers     int
		logger      core.Logger
	}

	delivery struct {
		persisted     bool
		persistErr    error
		live          bool
		pushed        int
		transportErrs []Failure
	}
)

func WithLive(live LiveSender) DispatcherOption {
	return func(d *Dispatcher) { d.live = live }
}

func WithPush(push PushTransport, timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.push = push
		if timeout > 0 {
			d.pushTimeout = timeout
		}
	}
}

// WithMail enables e-mail copies of urgent notifications.
func WithMail(mailSvc core.EmailService, users user.Repository, appName string) DispatcherOption {
	return func(d *Dispatcher) {
		d.mail = mailSvc
		d.users = users
		d.appName = appName
	}
}

func WithWorkers(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

func NewDispatcher(store Store, devices DeviceStore, logger core.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		store:       store,
		devices:     devices,
		pushTimeout: defaultPushTimeout,
		workers:     defaultWorkers,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch delivers payload to every recipient and reports the aggregated outcome.
// A recipient counts as sent once its notification record is persisted; transport
// errors are logged and reported but never fail the recipient. Cancelling ctx does
// not abort deliveries already started.
func (d *Dispatcher) Dispatch(ctx context.Context, recipients RecipientSet, payload Payload) DispatchResult {
	ctx = context.WithoutCancel(ctx)
	if payload.CreatedAt.IsZero() {
		payload.CreatedAt = core.NowFunc()
	}

	var (
		res = DispatchResult{Failures: []Failure{}}
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, d.workers)
	)
	for _, id := range recipients.IDs() {
		r := recipients[id]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer func() {
				<-sem
				wg.Done()
			}()
			out := d.deliver(ctx, r, payload)

			mu.Lock()
			defer mu.Unlock()
			if out.persisted {
				res.Sent++
			} else {
				res.Failed++
				res.Failures = append(res.Failures, Failure{UserID: r.UserID, Reason: FailurePersistence, Detail: errorDetail(out.persistErr)})
			}
			if out.live {
				res.LiveDelivered++
			}
			res.PushDelivered += out.pushed
			res.TransportErrors = append(res.TransportErrors, out.transportErrs...)
		}()
	}
	wg.Wait()

	sort.Slice(res.Failures, func(i, j int) bool { return res.Failures[i].UserID < res.Failures[j].UserID })
	sort.SliceStable(res.TransportErrors, func(i, j int) bool { return res.TransportErrors[i].UserID < res.TransportErrors[j].UserID })
	return res
}

func (d *Dispatcher) deliver(ctx context.Context, r Recipient, payload Payload) delivery {
	var out delivery
	payload.StudentID = r.StudentID

	if d.live != nil {
		frame, err := json.Marshal(LiveFrame{Kind: "notification", Notification: payload})
		if err != nil {
			out.transportErrs = append(out.transportErrs, d.transportFailure(r, "live", err.Error()))
		} else {
			out.live = d.live.SendIfConnected(r.UserID, frame)
		}
	}

	if d.push != nil {
		d.sendPush(ctx, r, payload, &out)
	}

	if d.mail != nil && payload.Priority == PriorityUrgent {
		if err := d.sendMail(ctx, r, payload); err != nil {
			out.transportErrs = append(out.transportErrs, d.transportFailure(r, "email", err.Error()))
		}
	}

	if _, err := d.store.RecordNotification(ctx, newRecord(r.UserID, payload)); err != nil {
		d.logger.Error("persisting notification", err, map[string]interface{}{"user_id": r.UserID, "type": payload.Type})
		out.persistErr = err
		return out
	}
	out.persisted = true
	return out
}

func (d *Dispatcher) sendPush(ctx context.Context, r Recipient, payload Payload, out *delivery) {
	devs, err := d.devices.ActiveDevices(ctx, r.UserID)
	if err != nil {
		out.transportErrs = append(out.transportErrs, d.transportFailure(r, "push", errors.Wrap(err, "querying devices").Error()))
		return
	}
	for _, dev := range devs {
		pctx, cancel := context.WithTimeout(ctx, d.pushTimeout)
		pr := d.push.SendPush(pctx, dev.Token, dev.Platform, payload)
		if !pr.Success && pr.ErrorClass == "" && pctx.Err() == context.DeadlineExceeded {
			pr.ErrorClass = PushTimeout
		}
		cancel()

		if pr.Success {
			out.pushed++
			continue
		}
		out.transportErrs = append(out.transportErrs, d.transportFailure(r, "push", string(pr.ErrorClass)+": "+pr.Detail))
		if pr.ErrorClass == PushInvalidToken {
			if err := d.devices.DeactivateDevice(ctx, "", dev.Token); err != nil {
				d.logger.Error("deactivating invalid push token", err, map[string]interface{}{"user_id": r.UserID})
			}
		}
	}
}

func (d *Dispatcher) sendMail(ctx context.Context, r Recipient, payload Payload) error {
	usr, err := d.users.GetUser(ctx, r.UserID)
	if err != nil {
		return errors.Wrap(err, "finding recipient")
	}
	if usr.Email == "" {
		return nil
	}
	d.mail.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      payload.Title,
		TemplateName: "notification",
		TemplateData: core.NotificationMailData{AppName: d.appName, Title: payload.Title, Body: payload.Body},
	})
	return nil
}

func (d *Dispatcher) transportFailure(r Recipient, channel, detail string) Failure {
	d.logger.Warn("notification transport failed", map[string]interface{}{
		"user_id": r.UserID,
		"channel": channel,
		"detail":  detail,
	})
	return Failure{UserID: r.UserID, Reason: FailureTransport, Detail: channel + ": " + detail}
}

func errorDetail(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
