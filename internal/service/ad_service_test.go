package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/namma_kumta_server/config"
	"github.com/qs3c/namma_kumta_server/internal/lifecycle"
	"github.com/qs3c/namma_kumta_server/internal/model"
	"github.com/qs3c/namma_kumta_server/internal/model/dto"
	"github.com/qs3c/namma_kumta_server/internal/pkg/email"
	"github.com/qs3c/namma_kumta_server/internal/pkg/pubsub"
	"github.com/qs3c/namma_kumta_server/internal/pkg/queue"
	"github.com/qs3c/namma_kumta_server/internal/repository"
	"github.com/qs3c/namma_kumta_server/internal/testutil"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []*pubsub.AdEventMessage
}

func (f *fakePublisher) PublishAdEvent(ctx context.Context, msg *pubsub.AdEventMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, msg)
	return nil
}

func (f *fakePublisher) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.events))
	for _, e := range f.events {
		names = append(names, e.Event)
	}
	return names
}

type fakeMailer struct {
	mu      sync.Mutex
	to      []string
	notices []email.AdStatusNotice
}

func (f *fakeMailer) SendAdStatus(to string, n email.AdStatusNotice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.to = append(f.to, to)
	f.notices = append(f.notices, n)
	return nil
}

type fakeQueue struct {
	msgs []*queue.MediaCleanupMessage
	err  error
}

func (f *fakeQueue) Push(ctx context.Context, msg *queue.MediaCleanupMessage) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

type fakeStorage struct {
	uploaded [][]byte
	exts     []string
	deleted  []string
	err      error
}

func (f *fakeStorage) UploadAdMedia(userID int64, data []byte, ext string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.uploaded = append(f.uploaded, data)
	f.exts = append(f.exts, ext)
	return "https://cdn.example.com/ads/1/media" + ext, nil
}

func (f *fakeStorage) DeleteByURL(url string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, url)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{Secret: testJWTSecret, ExpireHours: 24},
		Ads: config.AdsConfig{
			Plans: []config.AdPlan{
				{Days: 7, Price: 99},
				{Days: 10, Price: 139},
				{Days: 15, Price: 179},
				{Days: 30, Price: 299},
			},
			MaxImages: 3,
		},
		Payment: config.PaymentConfig{
			MerchantID:  "M-TEST",
			SaltKey:     "salt-key",
			SaltIndex:   "1",
			PayPageURL:  "https://pay.example.com/pg",
			CallbackURL: "https://api.example.com/api/v1/payments/callback",
			SuccessCode: "PAYMENT_SUCCESS",
		},
		Upload: config.UploadConfig{
			MaxImageSize:      1024,
			MaxVideoSize:      4096,
			AllowedImageTypes: []string{"image/jpeg", "image/png", "image/webp"},
			AllowedVideoTypes: []string{"video/mp4"},
		},
	}
}

type adFixture struct {
	db        *gorm.DB
	svc       *AdService
	adRepo    *repository.AdvertisementRepository
	publisher *fakePublisher
	mailer    *fakeMailer
	queue     *fakeQueue
	storage   *fakeStorage
}

func setupAdService(t *testing.T) (*adFixture, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	cfg := testConfig()

	f := &adFixture{
		db:        db,
		adRepo:    repository.NewAdvertisementRepository(db),
		publisher: &fakePublisher{},
		mailer:    &fakeMailer{},
		queue:     &fakeQueue{},
		storage:   &fakeStorage{},
	}
	notifier := NewNotifier(f.publisher, f.mailer, repository.NewUserRepository(db), nil)
	media := NewMediaService(f.storage, f.queue, cfg.Upload, nil)
	f.svc = NewAdService(f.adRepo, notifier, media, cfg, nil)

	return f, func() { testutil.CleanupTestDB(t, db) }
}

func (f *adFixture) setClock(at time.Time) {
	f.svc.now = func() time.Time { return at }
}

func (f *adFixture) reload(t *testing.T, id int64) *model.Advertisement {
	t.Helper()
	ad, err := f.adRepo.GetByID(id)
	require.NoError(t, err)
	return ad
}

func submitRequest(days int) *dto.SubmitAdRequest {
	return &dto.SubmitAdRequest{
		Title:        "Honda Activa for sale",
		CategoryID:   2,
		Price:        decimal.NewFromInt(42000),
		Description:  "2019 model, single owner",
		Location:     "Kumta",
		Images:       []string{"https://cdn.example.com/ads/1/a.jpg"},
		Contact:      dto.ContactInfo{Name: "Ravi", Phone: "9000000000"},
		DurationDays: days,
	}
}

func TestAdService_Submit(t *testing.T) {
	f, cleanup := setupAdService(t)
	defer cleanup()

	user := testutil.TestUser(t, f.db)

	info, err := f.svc.Submit(context.Background(), user.ID, submitRequest(7))
	require.NoError(t, err)
	assert.Equal(t, string(lifecycle.StatusPending), info.Status)
	assert.Equal(t, string(lifecycle.PaymentUnpaid), info.PaymentStatus)
	assert.Equal(t, 7, info.DurationDays)
	assert.Empty(t, info.ActivatedAt)

	ad := f.reload(t, info.ID)
	assert.Equal(t, "Ravi", ad.Contact.Name)
	assert.Equal(t, model.StringArray{"https://cdn.example.com/ads/1/a.jpg"}, ad.Images)
}

func TestAdService_Submit_Validation(t *testing.T) {
	f, cleanup := setupAdService(t)
	defer cleanup()

	user := testutil.TestUser(t, f.db)

	_, err := f.svc.Submit(context.Background(), user.ID, submitRequest(3))
	assert.ErrorIs(t, err, ErrUnknownPlan)

	req := submitRequest(7)
	req.Images = []string{"a", "b", "c", "d"}
	_, err = f.svc.Submit(context.Background(), user.ID, req)
	assert.ErrorIs(t, err, ErrTooManyImages)
}

func TestAdService_ApproveThenPay(t *testing.T) {
	f, cleanup := setupAdService(t)
	defer cleanup()
	ctx := context.Background()

	user := testutil.TestUser(t, f.db)
	info, err := f.svc.Submit(ctx, user.ID, submitRequest(7))
	require.NoError(t, err)

	approvedAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f.setClock(approvedAt)
	approved, err := f.svc.Approve(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, string(lifecycle.StatusApproved), approved.Status)
	assert.Empty(t, approved.ActivatedAt)

	paidAt := approvedAt.Add(2 * time.Hour)
	f.setClock(paidAt)
	require.NoError(t, f.svc.OnPaymentResult(ctx, info.ID, true))

	ad := f.reload(t, info.ID)
	assert.Equal(t, lifecycle.StatusActive, ad.Status)
	assert.Equal(t, lifecycle.PaymentPaid, ad.PaymentStatus)
	require.NotNil(t, ad.ActivatedAt)
	assert.True(t, paidAt.Equal(*ad.ActivatedAt))
	require.NotNil(t, ad.ExpiresAt)
	assert.True(t, paidAt.Add(7*24*time.Hour).Equal(*ad.ExpiresAt))
	require.NotNil(t, ad.ApprovedDate)
	assert.True(t, approvedAt.Equal(*ad.ApprovedDate))

	assert.Equal(t, []string{"approve", "payment_success", "activate"}, f.publisher.names())
}

func TestAdService_PayBeforeApprove(t *testing.T) {
	f, cleanup := setupAdService(t)
	defer cleanup()
	ctx := context.Background()

	user := testutil.TestUser(t, f.db)
	info, err := f.svc.Submit(ctx, user.ID, submitRequest(10))
	require.NoError(t, err)

	paidAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f.setClock(paidAt)
	require.NoError(t, f.svc.OnPaymentResult(ctx, info.ID, true))

	ad := f.reload(t, info.ID)
	assert.Equal(t, lifecycle.StatusPending, ad.Status)
	assert.Equal(t, lifecycle.PaymentPaid, ad.PaymentStatus)
	assert.Nil(t, ad.ActivatedAt)

	approvedAt := paidAt.Add(24 * time.Hour)
	f.setClock(approvedAt)
	approved, err := f.svc.Approve(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, string(lifecycle.StatusActive), approved.Status)

	ad = f.reload(t, info.ID)
	require.NotNil(t, ad.ActivatedAt)
	assert.True(t, approvedAt.Equal(*ad.ActivatedAt))
	assert.True(t, approvedAt.Add(10*24*time.Hour).Equal(*ad.ExpiresAt))

	// 审核通过即上线，只发上线邮件，支付成功不发邮件
	assert.Equal(t, []string{"payment_success", "approve", "activate"}, f.publisher.names())
	require.Len(t, f.mailer.notices, 1)
	assert.Equal(t, "activate", f.mailer.notices[0].Event)
	assert.Equal(t, user.Email, f.mailer.to[0])
}

func TestAdService_OnPaymentResult_Idempotent(t *testing.T) {
	f, cleanup := setupAdService(t)
	defer cleanup()
	ctx := context.Background()

	user := testutil.TestUser(t, f.db)
	ad := testutil.TestAd(t, f.db, user.ID, testutil.WithAdStatus(lifecycle.StatusApproved))

	first := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f.setClock(first)
	require.NoError(t, f.svc.OnPaymentResult(ctx, ad.ID, true))

	f.setClock(first.Add(3 * time.Hour))
	require.NoError(t, f.svc.OnPaymentResult(ctx, ad.ID, true))

	got := f.reload(t, ad.ID)
	require.NotNil(t, got.ActivatedAt)
	assert.True(t, first.Equal(*got.ActivatedAt))
	assert.Equal(t, []string{"payment_success", "activate"}, f.publisher.names())
}

func TestAdService_OnPaymentResult_LateFailureKeepsPaid(t *testing.T) {
	f, cleanup := setupAdService(t)
	defer cleanup()
	ctx := context.Background()

	user := testutil.TestUser(t, f.db)
	ad := testutil.TestAd(t, f.db, user.ID, testutil.WithActivatedAt(time.Now().Add(-time.Hour)))

	require.NoError(t, f.svc.OnPaymentResult(ctx, ad.ID, false))

	got := f.reload(t, ad.ID)
	assert.Equal(t, lifecycle.PaymentPaid, got.PaymentStatus)
	assert.Equal(t, lifecycle.StatusActive, got.Status)
}

func TestAdService_OnPaymentResult_Failed(t *testing.T) {
	f, cleanup := setupAdService(t)
	defer cleanup()
	ctx := context.Background()

	user := testutil.TestUser(t, f.db)
	ad := testutil.TestAd(t, f.db, user.ID)

	require.NoError(t, f.svc.OnPaymentResult(ctx, ad.ID, false))

	got := f.reload(t, ad.ID)
	assert.Equal(t, lifecycle.PaymentFailed, got.PaymentStatus)
	assert.Equal(t, lifecycle.StatusPending, got.Status)
}

func TestAdService_OnPaymentResult_Concurrent(t *testing.T) {
	f, cleanup := setupAdService(t)
	defer cleanup()
	ctx := context.Background()

	user := testutil.TestUser(t, f.db)
	ad := testutil.TestAd(t, f.db, user.ID, testutil.WithAdStatus(lifecycle.StatusApproved))

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.svc.OnPaymentResult(ctx, ad.ID, true)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	got := f.reload(t, ad.ID)
	assert.Equal(t, lifecycle.StatusActive, got.Status)

	activations := 0
	for _, name := range f.publisher.names() {
		if name == "activate" {
			activations++
		}
	}
	assert.Equal(t, 1, activations)
}

func TestAdService_RejectThenApprove(t *testing.T) {
	f, cleanup := setupAdService(t)
	defer cleanup()
	ctx := context.Background()

	user := testutil.TestUser(t, f.db)
	ad := testutil.TestAd(t, f.db, user.ID)

	rejected, err := f.svc.Reject(ctx, ad.ID, "phone number missing")
	require.NoError(t, err)
	assert.Equal(t, string(lifecycle.StatusRejected), rejected.Status)
	assert.Equal(t, "phone number missing", rejected.RejectionReason)

	_, err = f.svc.Approve(ctx, ad.ID)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidState)

	got := f.reload(t, ad.ID)
	assert.Equal(t, lifecycle.StatusRejected, got.Status)
	assert.Equal(t, "phone number missing", got.RejectionReason)
	require.Len(t, f.mailer.notices, 1)
	assert.Equal(t, "phone number missing", f.mailer.notices[0].Reason)
}

func TestAdService_RejectedPaidNeverActivates(t *testing.T) {
	f, cleanup := setupAdService(t)
	defer cleanup()
	ctx := context.Background()

	user := testutil.TestUser(t, f.db)
	ad := testutil.TestAd(t, f.db, user.ID)

	_, err := f.svc.Reject(ctx, ad.ID, "")
	require.NoError(t, err)
	require.NoError(t, f.svc.OnPaymentResult(ctx, ad.ID, true))

	got := f.reload(t, ad.ID)
	assert.Equal(t, lifecycle.StatusRejected, got.Status)
	assert.Equal(t, lifecycle.PaymentPaid, got.PaymentStatus)
	assert.Nil(t, got.ActivatedAt)
}

func TestAdService_Transition_NotFound(t *testing.T) {
	f, cleanup := setupAdService(t)
	defer cleanup()

	_, err := f.svc.Approve(context.Background(), 99999)
	assert.ErrorIs(t, err, lifecycle.ErrNotFound)
	assert.ErrorIs(t, f.svc.OnPaymentResult(context.Background(), 99999, true), lifecycle.ErrNotFound)
}

func TestAdService_SweepExpired(t *testing.T) {
	f, cleanup := setupAdService(t)
	defer cleanup()

	user := testutil.TestUser(t, f.db)
	eightDaysAgo := time.Now().Add(-8 * 24 * time.Hour)

	sevenDay := testutil.TestAd(t, f.db, user.ID, testutil.WithDuration(7), testutil.WithActivatedAt(eightDaysAgo))
	tenDay := testutil.TestAd(t, f.db, user.ID, testutil.WithDuration(10), testutil.WithActivatedAt(eightDaysAgo))
	pending := testutil.TestAd(t, f.db, user.ID)

	due, err := f.svc.CountDue()
	require.NoError(t, err)
	assert.Equal(t, int64(1), due)

	n, err := f.svc.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	assert.Equal(t, lifecycle.StatusExpired, f.reload(t, sevenDay.ID).Status)
	assert.Equal(t, lifecycle.StatusActive, f.reload(t, tenDay.ID).Status)
	assert.Equal(t, lifecycle.StatusPending, f.reload(t, pending.ID).Status)

	// 每条被下线的广告通知一次广告主
	require.Len(t, f.publisher.events, 1)
	ev := f.publisher.events[0]
	assert.Equal(t, "expire", ev.Event)
	assert.Equal(t, sevenDay.ID, ev.AdvertisementID)
	assert.Equal(t, user.ID, ev.UserID)
	assert.Equal(t, string(lifecycle.StatusExpired), ev.Status)
	require.Len(t, f.mailer.notices, 1)
	assert.Equal(t, "expire", f.mailer.notices[0].Event)

	// 再扫一次没有新的到期广告
	n, err = f.svc.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, f.publisher.events, 1)

	// 已到期的广告不会因为迟到的支付回调重新上线
	require.NoError(t, f.svc.OnPaymentResult(context.Background(), sevenDay.ID, true))
	assert.Equal(t, lifecycle.StatusExpired, f.reload(t, sevenDay.ID).Status)
}

func TestAdService_SweepExpired_Batches(t *testing.T) {
	f, cleanup := setupAdService(t)
	defer cleanup()

	user := testutil.TestUser(t, f.db)
	eightDaysAgo := time.Now().Add(-8 * 24 * time.Hour)
	for i := 0; i < 3; i++ {
		testutil.TestAd(t, f.db, user.ID, testutil.WithActivatedAt(eightDaysAgo))
	}

	expired, err := f.adRepo.ExpireDue(time.Now(), 2)
	require.NoError(t, err)
	assert.Len(t, expired, 3)
	for _, ad := range expired {
		assert.Equal(t, lifecycle.StatusExpired, ad.Status)
	}
}

func TestAdService_SweepExpired_CanceledContext(t *testing.T) {
	f, cleanup := setupAdService(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.svc.SweepExpired(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAdService_EditByOwner(t *testing.T) {
	f, cleanup := setupAdService(t)
	defer cleanup()
	ctx := context.Background()

	owner := testutil.TestUser(t, f.db)
	other := testutil.TestUser(t, f.db)
	title := "Updated title"
	thirty := 30

	t.Run("unpaid", func(t *testing.T) {
		ad := testutil.TestAd(t, f.db, owner.ID)
		_, err := f.svc.EditByOwner(ctx, ad.ID, owner.ID, &dto.UpdateAdRequest{Title: &title})
		assert.ErrorIs(t, err, lifecycle.ErrPaymentRequired)
	})

	t.Run("payment failed", func(t *testing.T) {
		ad := testutil.TestAd(t, f.db, owner.ID)
		require.NoError(t, f.svc.OnPaymentResult(ctx, ad.ID, false))
		_, err := f.svc.EditByOwner(ctx, ad.ID, owner.ID, &dto.UpdateAdRequest{Title: &title})
		assert.ErrorIs(t, err, lifecycle.ErrPaymentRequired)
	})

	t.Run("not owner", func(t *testing.T) {
		ad := testutil.TestAd(t, f.db, owner.ID, testutil.WithPaid())
		_, err := f.svc.EditByOwner(ctx, ad.ID, other.ID, &dto.UpdateAdRequest{Title: &title})
		assert.ErrorIs(t, err, lifecycle.ErrForbidden)
	})

	t.Run("duration locked once active", func(t *testing.T) {
		ad := testutil.TestAd(t, f.db, owner.ID, testutil.WithActivatedAt(time.Now().Add(-time.Hour)))
		_, err := f.svc.EditByOwner(ctx, ad.ID, owner.ID, &dto.UpdateAdRequest{DurationDays: &thirty})
		assert.ErrorIs(t, err, lifecycle.ErrImmutableField)
		assert.Equal(t, 7, f.reload(t, ad.ID).DurationDays)
	})

	t.Run("content editable once active", func(t *testing.T) {
		ad := testutil.TestAd(t, f.db, owner.ID, testutil.WithActivatedAt(time.Now().Add(-time.Hour)))
		seven := 7
		info, err := f.svc.EditByOwner(ctx, ad.ID, owner.ID, &dto.UpdateAdRequest{Title: &title, DurationDays: &seven})
		require.NoError(t, err)
		assert.Equal(t, title, info.Title)
		assert.Equal(t, string(lifecycle.StatusActive), info.Status)
	})

	t.Run("duration locked once paid", func(t *testing.T) {
		ad := testutil.TestAd(t, f.db, owner.ID)
		require.NoError(t, f.svc.OnPaymentResult(ctx, ad.ID, true))

		_, err := f.svc.EditByOwner(ctx, ad.ID, owner.ID, &dto.UpdateAdRequest{DurationDays: &thirty})
		assert.ErrorIs(t, err, lifecycle.ErrImmutableField)

		contact := dto.ContactInfo{Name: "Asha", Phone: "9111111111", WhatsApp: "9111111111"}
		_, err = f.svc.EditByOwner(ctx, ad.ID, owner.ID, &dto.UpdateAdRequest{Contact: &contact})
		require.NoError(t, err)

		info, err := f.svc.Approve(ctx, ad.ID)
		require.NoError(t, err)
		assert.Equal(t, string(lifecycle.StatusActive), info.Status)
		assert.Equal(t, 7, info.DurationDays)

		got := f.reload(t, ad.ID)
		assert.Equal(t, 7, got.DurationDays)
		require.NotNil(t, got.ActivatedAt)
		require.NotNil(t, got.ExpiresAt)
		assert.Equal(t, 7*24*time.Hour, got.ExpiresAt.Sub(*got.ActivatedAt))
		assert.Equal(t, "Asha", got.Contact.Name)
		assert.Equal(t, "9111111111", got.Contact.WhatsApp)
	})

	t.Run("unknown plan", func(t *testing.T) {
		ad := testutil.TestAd(t, f.db, owner.ID, testutil.WithPaid())
		three := 3
		_, err := f.svc.EditByOwner(ctx, ad.ID, owner.ID, &dto.UpdateAdRequest{DurationDays: &three})
		assert.ErrorIs(t, err, ErrUnknownPlan)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := f.svc.EditByOwner(ctx, 99999, owner.ID, &dto.UpdateAdRequest{Title: &title})
		assert.ErrorIs(t, err, lifecycle.ErrNotFound)
	})
}

func TestAdService_Get(t *testing.T) {
	f, cleanup := setupAdService(t)
	defer cleanup()

	owner := testutil.TestUser(t, f.db)
	other := testutil.TestUser(t, f.db)
	ad := testutil.TestAd(t, f.db, owner.ID)

	info, err := f.svc.Get(ad.ID, owner.ID, false)
	require.NoError(t, err)
	assert.Equal(t, ad.ID, info.ID)

	_, err = f.svc.Get(ad.ID, other.ID, false)
	assert.ErrorIs(t, err, lifecycle.ErrForbidden)

	_, err = f.svc.Get(ad.ID, other.ID, true)
	assert.NoError(t, err)
}

func TestAdService_GetPublic(t *testing.T) {
	f, cleanup := setupAdService(t)
	defer cleanup()

	user := testutil.TestUser(t, f.db)
	pending := testutil.TestAd(t, f.db, user.ID)
	active := testutil.TestAd(t, f.db, user.ID, testutil.WithActivatedAt(time.Now().Add(-time.Hour)))
	due := testutil.TestAd(t, f.db, user.ID, testutil.WithActivatedAt(time.Now().Add(-8*24*time.Hour)))

	_, err := f.svc.GetPublic(pending.ID)
	assert.ErrorIs(t, err, lifecycle.ErrNotFound)

	info, err := f.svc.GetPublic(active.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, info.ExpiresAt)

	_, err = f.svc.GetPublic(due.ID)
	assert.ErrorIs(t, err, lifecycle.ErrNotFound)
}

func TestAdService_Lists(t *testing.T) {
	f, cleanup := setupAdService(t)
	defer cleanup()

	owner := testutil.TestUser(t, f.db)
	other := testutil.TestUser(t, f.db)
	testutil.TestAd(t, f.db, owner.ID)
	testutil.TestAd(t, f.db, owner.ID, testutil.WithActivatedAt(time.Now().Add(-time.Hour)), testutil.WithLocation("Kumta Bus Stand"))
	testutil.TestAd(t, f.db, other.ID, testutil.WithActivatedAt(time.Now().Add(-time.Hour)), testutil.WithLocation("Honnavar"))

	mine, total, err := f.svc.ListMine(owner.ID, "", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, mine, 2)

	_, _, err = f.svc.ListMine(owner.ID, "archived", 1, 20)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	pending, total, err := f.svc.ListByStatus(string(lifecycle.StatusPending), 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, string(lifecycle.StatusPending), pending[0].Status)

	public, total, err := f.svc.ListPublic(&dto.PublicAdQuery{Location: "Kumta"}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, owner.ID, public[0].UserID)

	stats, err := f.svc.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Counts[string(lifecycle.StatusPending)])
	assert.Equal(t, int64(2), stats.Counts[string(lifecycle.StatusActive)])
	assert.Equal(t, int64(0), stats.Counts[string(lifecycle.StatusExpired)])
	assert.Zero(t, stats.Due)
}

func TestAdService_Delete(t *testing.T) {
	f, cleanup := setupAdService(t)
	defer cleanup()
	ctx := context.Background()

	owner := testutil.TestUser(t, f.db)
	other := testutil.TestUser(t, f.db)
	images := []string{"https://cdn.example.com/ads/1/a.jpg", "https://cdn.example.com/ads/1/b.jpg"}

	t.Run("forbidden", func(t *testing.T) {
		ad := testutil.TestAd(t, f.db, owner.ID)
		assert.ErrorIs(t, f.svc.Delete(ctx, ad.ID, other.ID, false), lifecycle.ErrForbidden)
	})

	t.Run("queues media cleanup", func(t *testing.T) {
		ad := testutil.TestAd(t, f.db, owner.ID, testutil.WithMedia(images, "https://cdn.example.com/ads/1/v.mp4"))
		require.NoError(t, f.svc.Delete(ctx, ad.ID, owner.ID, false))

		_, err := f.adRepo.GetByID(ad.ID)
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

		require.Len(t, f.queue.msgs, 1)
		assert.Equal(t, ad.ID, f.queue.msgs[0].AdvertisementID)
		assert.Len(t, f.queue.msgs[0].URLs, 3)
		assert.Empty(t, f.storage.deleted)
	})

	t.Run("inline cleanup when queue fails", func(t *testing.T) {
		f.queue.err = errors.New("redis down")
		defer func() { f.queue.err = nil }()

		ad := testutil.TestAd(t, f.db, owner.ID, testutil.WithMedia(images, ""))
		require.NoError(t, f.svc.Delete(ctx, ad.ID, other.ID, true))
		assert.Equal(t, images, f.storage.deleted)
	})

	t.Run("not found", func(t *testing.T) {
		assert.ErrorIs(t, f.svc.Delete(ctx, 99999, owner.ID, true), lifecycle.ErrNotFound)
	})
}

func TestAdService_Plans(t *testing.T) {
	f, cleanup := setupAdService(t)
	defer cleanup()

	plans := f.svc.Plans()
	require.Len(t, plans, 4)
	assert.Equal(t, 7, plans[0].Days)
	assert.True(t, decimal.NewFromInt(99).Equal(plans[0].Price))
}
