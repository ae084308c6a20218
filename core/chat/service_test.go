package chat_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Shilpa0612/school-app-backend-sub003/core"
	"github.com/Shilpa0612/school-app-backend-sub003/core/chat"
	"github.com/Shilpa0612/school-app-backend-sub003/core/directory"
	"github.com/Shilpa0612/school-app-backend-sub003/core/moderation"
	"github.com/Shilpa0612/school-app-backend-sub003/core/notification"
	"github.com/Shilpa0612/school-app-backend-sub003/core/user"
	inmemdb "github.com/Shilpa0612/school-app-backend-sub003/storage/database/inmem"
	testutil "github.com/Shilpa0612/school-app-backend-sub003/tests"
)

// recordingNotifier forwards to the real notifier and keeps every event it was given.
type recordingNotifier struct {
	next chat.Notifier
	mu   sync.Mutex
	evts []notification.Event
}

func (n *recordingNotifier) Notify(ctx context.Context, evt notification.Event) (notification.DispatchResult, error) {
	n.mu.Lock()
	n.evts = append(n.evts, evt)
	n.mu.Unlock()
	return n.next.Notify(ctx, evt)
}

func (n *recordingNotifier) count(titlePrefix string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.evts {
		if strings.HasPrefix(e.Title, titlePrefix) {
			c++
		}
	}
	return c
}

type fixture struct {
	svc      *chat.Service
	notifier *recordingNotifier
	notifs   *inmemdb.NotificationRepository
	thread   chat.Thread

	teacher, parent, principal, outsider user.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := inmemdb.Open()
	logger := testutil.NewLogger()
	users := inmemdb.NewUserRepository(db)
	notifs := inmemdb.NewNotificationRepository(db)
	resolver := directory.NewResolver(inmemdb.NewDirectoryRepository(db), logger)
	screener, err := moderation.NewScreener([]string{"idiot"}, '*')
	require.NoError(t, err)

	f := &fixture{notifs: notifs}
	f.teacher = testutil.CreateUser(t, users, "Teacher Tom", user.RoleTeacher, true)
	f.parent = testutil.CreateUser(t, users, "Parent Pat", user.RoleParent, true)
	f.principal = testutil.CreateUser(t, users, "Principal Pam", user.RolePrincipal, true)
	f.outsider = testutil.CreateUser(t, users, "Parent Olly", user.RoleParent, true)

	f.notifier = &recordingNotifier{next: notification.NewNotifier(
		notification.NewAudience(resolver, users, logger),
		notification.NewDispatcher(notifs, notifs, logger),
		logger,
	)}
	f.svc = chat.NewService(inmemdb.NewChatRepository(db), users, f.notifier, screener, logger)

	f.thread, err = f.svc.CreateThread(context.Background(), f.teacher.Actor(), chat.NewThread{
		Title:          "Homework help",
		ParticipantIDs: []string{f.parent.ID},
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) inbox(t *testing.T, usr user.User) []notification.Notification {
	t.Helper()
	ns, err := f.notifs.ListNotifications(context.Background(), usr.ID, false, 100)
	require.NoError(t, err)
	return ns
}

func TestService_CreateThread(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	req.True(f.thread.HasParticipant(f.teacher.ID))
	req.True(f.thread.HasParticipant(f.parent.ID))
	req.False(f.thread.HasParticipant(f.principal.ID))

	_, err := f.svc.CreateThread(context.Background(), f.teacher.Actor(), chat.NewThread{ParticipantIDs: []string{"ghost"}})
	req.True(core.IsNotFound(err))
}

func TestService_TeacherMessageWaitsForApproval(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	msg, err := f.svc.Create(ctx, f.teacher.Actor(), f.thread.ID, chat.NewMessage{Content: "Page 12 please"})
	req.NoError(err)
	req.Equal(chat.StatusPending, msg.ApprovalStatus)
	req.Nil(msg.ApproverID)

	// the parent cannot see it yet
	msgs, err := f.svc.ListThread(ctx, f.parent.Actor(), f.thread.ID)
	req.NoError(err)
	req.Empty(msgs)
	_, err = f.svc.Get(ctx, f.parent.Actor(), msg.ID)
	req.True(core.IsNotFound(err))
	req.Empty(f.inbox(t, f.parent))

	// the sender and moderators can
	msgs, err = f.svc.ListThread(ctx, f.teacher.Actor(), f.thread.ID)
	req.NoError(err)
	req.Len(msgs, 1)
	req.Len(f.inbox(t, f.principal), 1)
	req.Equal("Message awaiting approval", f.inbox(t, f.principal)[0].Title)
}

func TestService_Approve(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	msg, err := f.svc.Create(ctx, f.teacher.Actor(), f.thread.ID, chat.NewMessage{Content: "Page 12 please"})
	req.NoError(err)

	approved, err := f.svc.Approve(ctx, f.principal.Actor(), msg.ID)
	req.NoError(err)
	req.Equal(chat.StatusApproved, approved.ApprovalStatus)
	req.Equal(f.principal.ID, *approved.ApproverID)
	req.NotNil(approved.ApprovedAt)

	got, err := f.svc.Get(ctx, f.parent.Actor(), msg.ID)
	req.NoError(err)
	req.Equal("Page 12 please", got.Content)

	parentInbox := f.inbox(t, f.parent)
	req.Len(parentInbox, 1)
	req.Equal(notification.TypeMessageApproval, parentInbox[0].Type)
	req.Equal(msg.ID, parentInbox[0].EntityID)
	req.Len(f.inbox(t, f.teacher), 1)
	req.Len(f.inbox(t, f.principal), 1) // the pending notice only

	// approving again is a no-op
	again, err := f.svc.Approve(ctx, f.principal.Actor(), msg.ID)
	req.NoError(err)
	req.Equal(approved.Version, again.Version)
	req.Equal(1, f.notifier.count("Message approved"))
}

func TestService_ConcurrentApproveNotifiesOnce(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	msg, err := f.svc.Create(ctx, f.teacher.Actor(), f.thread.ID, chat.NewMessage{Content: "Trip on Friday"})
	req.NoError(err)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Approve(ctx, f.principal.Actor(), msg.ID)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		req.NoError(err)
	}
	req.Equal(1, f.notifier.count("Message approved"))
	req.Len(f.inbox(t, f.parent), 1)
}

func TestService_Reject(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	msg, err := f.svc.Create(ctx, f.teacher.Actor(), f.thread.ID, chat.NewMessage{Content: "Bring a phone"})
	req.NoError(err)

	rejected, err := f.svc.Reject(ctx, f.principal.Actor(), msg.ID, chat.RejectMessage{Reason: "Phones are not allowed"})
	req.NoError(err)
	req.Equal(chat.StatusRejected, rejected.ApprovalStatus)
	req.Equal("Phones are not allowed", *rejected.RejectionReason)

	teacherInbox := f.inbox(t, f.teacher)
	req.Len(teacherInbox, 1)
	req.Contains(teacherInbox[0].Body, "Phones are not allowed")
	req.Empty(f.inbox(t, f.parent))

	// rejecting twice is not a transition
	_, err = f.svc.Reject(ctx, f.principal.Actor(), msg.ID, chat.RejectMessage{Reason: "again"})
	req.True(core.IsInvalidState(err))

	// a rejected message can still be approved
	approved, err := f.svc.Approve(ctx, f.principal.Actor(), msg.ID)
	req.NoError(err)
	req.Equal(chat.StatusApproved, approved.ApprovalStatus)
	req.Nil(approved.RejectionReason)
}

func TestService_RejectApprovedIsInvalid(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	msg, err := f.svc.Create(ctx, f.teacher.Actor(), f.thread.ID, chat.NewMessage{Content: "Hello"})
	req.NoError(err)
	_, err = f.svc.Approve(ctx, f.principal.Actor(), msg.ID)
	req.NoError(err)

	_, err = f.svc.Reject(ctx, f.principal.Actor(), msg.ID, chat.RejectMessage{Reason: "too late"})
	req.True(core.IsInvalidState(err))

	got, err := f.svc.Get(ctx, f.principal.Actor(), msg.ID)
	req.NoError(err)
	req.Equal(chat.StatusApproved, got.ApprovalStatus)
}

func TestService_Permissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	msg, err := f.svc.Create(ctx, f.teacher.Actor(), f.thread.ID, chat.NewMessage{Content: "Hello"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		run     func() error
		wantErr func(error) bool
	}{
		{name: "parent approves", wantErr: core.IsForbidden, run: func() error {
			_, err := f.svc.Approve(ctx, f.parent.Actor(), msg.ID)
			return err
		}},
		{name: "teacher rejects", wantErr: core.IsForbidden, run: func() error {
			_, err := f.svc.Reject(ctx, f.teacher.Actor(), msg.ID, chat.RejectMessage{Reason: "no"})
			return err
		}},
		{name: "approve unknown message", wantErr: core.IsNotFound, run: func() error {
			_, err := f.svc.Approve(ctx, f.principal.Actor(), "missing")
			return err
		}},
		{name: "edit by someone else", wantErr: core.IsForbidden, run: func() error {
			_, err := f.svc.Edit(ctx, f.parent.Actor(), msg.ID, chat.EditMessage{Content: "hijack"})
			return err
		}},
		{name: "outsider posts", wantErr: core.IsForbidden, run: func() error {
			_, err := f.svc.Create(ctx, f.outsider.Actor(), f.thread.ID, chat.NewMessage{Content: "hi"})
			return err
		}},
		{name: "outsider reads", wantErr: core.IsForbidden, run: func() error {
			_, err := f.svc.ListThread(ctx, f.outsider.Actor(), f.thread.ID)
			return err
		}},
		{name: "post to unknown thread", wantErr: core.IsNotFound, run: func() error {
			_, err := f.svc.Create(ctx, f.teacher.Actor(), "missing", chat.NewMessage{Content: "hi"})
			return err
		}},
		{name: "pending queue for parents", wantErr: core.IsForbidden, run: func() error {
			_, err := f.svc.PendingQueue(ctx, f.parent.Actor())
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.Error(t, err)
			require.True(t, tt.wantErr(err), "unexpected error: %v", err)
		})
	}
}

func TestService_EditApprovedGoesBackToQueue(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	msg, err := f.svc.Create(ctx, f.teacher.Actor(), f.thread.ID, chat.NewMessage{Content: "Test on Monday"})
	req.NoError(err)
	_, err = f.svc.Approve(ctx, f.principal.Actor(), msg.ID)
	req.NoError(err)

	res, err := f.svc.Edit(ctx, f.teacher.Actor(), msg.ID, chat.EditMessage{Content: "Test on Tuesday"})
	req.NoError(err)
	req.True(res.RequiresReapproval)
	req.Equal(chat.StatusPending, res.Message.ApprovalStatus)
	req.Nil(res.Message.ApproverID)
	req.Nil(res.Message.ApprovedAt)
	req.NotNil(res.Message.EditedAt)
	req.Equal("Test on Tuesday", res.Message.Content)

	// hidden from the parent until approved again
	msgs, err := f.svc.ListThread(ctx, f.parent.Actor(), f.thread.ID)
	req.NoError(err)
	req.Empty(msgs)

	edits, err := f.svc.History(ctx, f.principal.Actor(), msg.ID)
	req.NoError(err)
	req.Len(edits, 1)
	req.Equal("Test on Monday", edits[0].PreviousContent)
	req.Equal(chat.StatusApproved, edits[0].PreviousStatus)
	req.Contains(edits[0].Diff, "-Test on Monday")
	req.Contains(edits[0].Diff, "+Test on Tuesday")

	_, err = f.svc.History(ctx, f.parent.Actor(), msg.ID)
	req.True(core.IsForbidden(err))

	req.Equal(1, f.notifier.count("Edited message awaiting approval"))
}

func TestService_EditPendingKeepsPending(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	msg, err := f.svc.Create(ctx, f.parent.Actor(), f.thread.ID, chat.NewMessage{Content: "Sick today"})
	req.NoError(err)

	res, err := f.svc.Edit(ctx, f.parent.Actor(), msg.ID, chat.EditMessage{Content: "Sick today and tomorrow"})
	req.NoError(err)
	req.False(res.RequiresReapproval)
	req.Equal(chat.StatusPending, res.Message.ApprovalStatus)
	req.Equal(msg.Version+1, res.Message.Version)
	req.Zero(f.notifier.count("Edited message awaiting approval"))
}

func TestService_StaleVersionConflicts(t *testing.T) {
	req := require.New(t)
	db := inmemdb.Open()
	repo := inmemdb.NewChatRepository(db)
	ctx := context.Background()

	_, err := repo.CreateThread(ctx, chat.Thread{ID: "th"})
	req.NoError(err)
	_, err = repo.CreateMessage(ctx, chat.Message{ID: "m", ThreadID: "th", ApprovalStatus: chat.StatusPending})
	req.NoError(err)

	_, swapped, err := repo.CompareAndSwap(ctx, "m", 1, []chat.ApprovalStatus{chat.StatusPending}, chat.Update{ApprovalStatus: chat.StatusApproved})
	req.NoError(err)
	req.True(swapped)

	// a second writer still holding version 1 loses
	_, swapped, err = repo.CompareAndSwap(ctx, "m", 1, []chat.ApprovalStatus{chat.StatusPending, chat.StatusApproved}, chat.Update{ApprovalStatus: chat.StatusRejected})
	req.NoError(err)
	req.False(swapped)
}

func TestService_PrincipalPublishesDirectly(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	th, err := f.svc.CreateThread(ctx, f.principal.Actor(), chat.NewThread{ParticipantIDs: []string{f.parent.ID, f.teacher.ID}})
	req.NoError(err)

	msg, err := f.svc.Create(ctx, f.principal.Actor(), th.ID, chat.NewMessage{Content: "Meeting at 5"})
	req.NoError(err)
	req.Equal(chat.StatusApproved, msg.ApprovalStatus)
	req.Equal(f.principal.ID, *msg.ApproverID)

	req.Len(f.inbox(t, f.parent), 1)
	req.Len(f.inbox(t, f.teacher), 1)
	req.Empty(f.inbox(t, f.principal))

	// a privileged edit stays approved and keeps the original approval
	res, err := f.svc.Edit(ctx, f.principal.Actor(), msg.ID, chat.EditMessage{Content: "Meeting at 6"})
	req.NoError(err)
	req.False(res.RequiresReapproval)
	req.Equal(chat.StatusApproved, res.Message.ApprovalStatus)
	req.Equal(msg.ApprovedAt, res.Message.ApprovedAt)
}

func TestService_FlaggedContent(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	clean, err := f.svc.Create(ctx, f.parent.Actor(), f.thread.ID, chat.NewMessage{Content: "Thanks!"})
	req.NoError(err)
	flagged, err := f.svc.Create(ctx, f.parent.Actor(), f.thread.ID, chat.NewMessage{Content: "What an 1d10t"})
	req.NoError(err)
	req.Equal([]string{"idiot"}, flagged.Flagged)

	queue, err := f.svc.PendingQueue(ctx, f.principal.Actor())
	req.NoError(err)
	req.Len(queue, 2)
	req.Equal(flagged.ID, queue[0].ID)
	req.Equal(clean.ID, queue[1].ID)

	// previews never carry the blocked term
	for _, n := range f.inbox(t, f.principal) {
		req.NotContains(n.Body, "1d10t")
	}
}
