package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/namma_kumta_server/config"
	"github.com/qs3c/namma_kumta_server/internal/lifecycle"
	"github.com/qs3c/namma_kumta_server/internal/model"
	"github.com/qs3c/namma_kumta_server/internal/model/dto"
	"github.com/qs3c/namma_kumta_server/internal/pkg/logger"
	"github.com/qs3c/namma_kumta_server/internal/pkg/metrics"
	"github.com/qs3c/namma_kumta_server/internal/repository"
)

var (
	ErrUnknownPlan   = errors.New("不支持的展示时长")
	ErrTooManyImages = errors.New("图片数量超出限制")
	ErrInvalidStatus = errors.New("无效的广告状态")
)

// 条件更新落空后重新读取的次数
const maxTransitionAttempts = 3

// 到期扫描每批处理的记录数
const sweepBatchSize = 500

type AdService struct {
	adRepo   *repository.AdvertisementRepository
	notifier *Notifier
	media    *MediaService
	cfg      *config.Config
	log      *logger.Logger
	now      func() time.Time
}

// NewAdService notifier 和 media 可以为 nil
func NewAdService(
	adRepo *repository.AdvertisementRepository,
	notifier *Notifier,
	media *MediaService,
	cfg *config.Config,
	log *logger.Logger,
) *AdService {
	if log == nil {
		log = logger.Nop()
	}
	return &AdService{
		adRepo:   adRepo,
		notifier: notifier,
		media:    media,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

func (s *AdService) clock() time.Time {
	return s.now().UTC()
}

// Submit 提交广告，进入待审核、未支付状态
func (s *AdService) Submit(ctx context.Context, userID int64, req *dto.SubmitAdRequest) (*dto.AdInfo, error) {
	if err := s.checkPlan(req.DurationDays); err != nil {
		return nil, err
	}
	if err := s.checkImages(req.Images); err != nil {
		return nil, err
	}

	ad := &model.Advertisement{
		UserID:      userID,
		Title:       req.Title,
		CategoryID:  req.CategoryID,
		Price:       req.Price,
		Description: req.Description,
		Location:    req.Location,
		Images:      model.StringArray(req.Images),
		Video:       req.Video,
		Contact:     contactFromDTO(req.Contact),
	}
	if ad.Images == nil {
		ad.Images = model.StringArray{}
	}
	ad.ApplyState(lifecycle.Submitted(req.DurationDays))

	if err := s.adRepo.Create(ad); err != nil {
		return nil, fmt.Errorf("create advertisement: %w", err)
	}

	s.log.Info("advertisement submitted", "ad_id", ad.ID, "user_id", userID, "duration_days", ad.DurationDays)
	return buildAdInfo(ad), nil
}

func (s *AdService) checkPlan(days int) error {
	if len(s.cfg.Ads.Plans) == 0 {
		if days < 1 {
			return ErrUnknownPlan
		}
		return nil
	}
	if _, ok := s.cfg.Ads.PlanFor(days); !ok {
		return ErrUnknownPlan
	}
	return nil
}

func (s *AdService) checkImages(images []string) error {
	if s.cfg.Ads.MaxImages > 0 && len(images) > s.cfg.Ads.MaxImages {
		return ErrTooManyImages
	}
	return nil
}

// Plans 可选的展示套餐
func (s *AdService) Plans() []dto.AdPlanInfo {
	plans := make([]dto.AdPlanInfo, 0, len(s.cfg.Ads.Plans))
	for _, p := range s.cfg.Ads.Plans {
		plans = append(plans, dto.AdPlanInfo{Days: p.Days, Price: planPrice(p)})
	}
	return plans
}

func (s *AdService) load(id int64) (*model.Advertisement, error) {
	ad, err := s.adRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, lifecycle.ErrNotFound
		}
		return nil, err
	}
	return ad, nil
}

// Get 广告主或管理员查看详情
func (s *AdService) Get(id, requesterID int64, isAdmin bool) (*dto.AdInfo, error) {
	ad, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if !isAdmin && ad.UserID != requesterID {
		return nil, lifecycle.ErrForbidden
	}
	return buildAdInfo(ad), nil
}

// GetPublic 公开详情，只返回正在展示的广告
func (s *AdService) GetPublic(id int64) (*dto.AdInfo, error) {
	ad, err := s.load(id)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	if ad.Status != lifecycle.StatusActive || lifecycle.IsDue(ad.State(), now) {
		return nil, lifecycle.ErrNotFound
	}
	return buildAdInfo(ad), nil
}

func (s *AdService) ListMine(userID int64, status string, page, pageSize int) ([]*dto.AdInfo, int64, error) {
	if err := validStatusFilter(status); err != nil {
		return nil, 0, err
	}
	ads, total, err := s.adRepo.ListByUser(userID, status, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	return buildAdInfos(ads), total, nil
}

// ListByStatus 管理端列表，status 为空时返回全部
func (s *AdService) ListByStatus(status string, page, pageSize int) ([]*dto.AdInfo, int64, error) {
	if err := validStatusFilter(status); err != nil {
		return nil, 0, err
	}
	ads, total, err := s.adRepo.ListByStatus(status, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	return buildAdInfos(ads), total, nil
}

func (s *AdService) ListPublic(query *dto.PublicAdQuery, page, pageSize int) ([]*dto.AdInfo, int64, error) {
	filter := repository.PublicFilter{
		CategoryID: query.CategoryID,
		Location:   query.Location,
		Search:     query.Search,
	}
	ads, total, err := s.adRepo.ListPublic(filter, s.clock(), page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	return buildAdInfos(ads), total, nil
}

func validStatusFilter(status string) error {
	if status != "" && !lifecycle.Status(status).Valid() {
		return ErrInvalidStatus
	}
	return nil
}

// Stats 各状态数量以及待扫描的到期数量
func (s *AdService) Stats() (*dto.AdStats, error) {
	counts, err := s.adRepo.CountByStatus()
	if err != nil {
		return nil, err
	}
	due, err := s.CountDue()
	if err != nil {
		return nil, err
	}

	stats := &dto.AdStats{Counts: make(map[string]int64, len(counts)), Due: due}
	for _, st := range lifecycle.AllStatuses() {
		stats.Counts[string(st)] = counts[st]
	}
	return stats, nil
}

// EditByOwner 广告主在支付后修改内容，展示时长随支付锁定
func (s *AdService) EditByOwner(ctx context.Context, id, requesterID int64, req *dto.UpdateAdRequest) (*dto.AdInfo, error) {
	if req.DurationDays != nil {
		if err := s.checkPlan(*req.DurationDays); err != nil {
			return nil, err
		}
	}
	if req.Images != nil {
		if err := s.checkImages(req.Images); err != nil {
			return nil, err
		}
	}

	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		ad, err := s.load(id)
		if err != nil {
			return nil, err
		}
		if err := lifecycle.CheckOwnerEdit(ad.State(), ad.UserID, requesterID, req.DurationDays); err != nil {
			return nil, err
		}

		fields := editFields(ad, req)
		if len(fields) == 0 {
			return buildAdInfo(ad), nil
		}

		ok, err := s.adRepo.UpdateContent(id, requesterID, ad.DurationDays, fields)
		if err != nil {
			return nil, fmt.Errorf("update advertisement: %w", err)
		}
		if !ok {
			continue
		}

		updated, err := s.load(id)
		if err != nil {
			return nil, err
		}
		return buildAdInfo(updated), nil
	}

	return nil, lifecycle.ErrConflict
}

// editFields 只收集与当前值不同的列
func editFields(ad *model.Advertisement, req *dto.UpdateAdRequest) map[string]interface{} {
	fields := map[string]interface{}{}
	if req.Title != nil && *req.Title != ad.Title {
		fields["title"] = *req.Title
	}
	if req.CategoryID != nil && *req.CategoryID != ad.CategoryID {
		fields["category_id"] = *req.CategoryID
	}
	if req.Price != nil && !req.Price.Equal(ad.Price) {
		fields["price"] = *req.Price
	}
	if req.Description != nil && *req.Description != ad.Description {
		fields["description"] = *req.Description
	}
	if req.Location != nil && *req.Location != ad.Location {
		fields["location"] = *req.Location
	}
	if req.Images != nil {
		fields["images"] = model.StringArray(req.Images)
	}
	if req.Video != nil && *req.Video != ad.Video {
		fields["video"] = *req.Video
	}
	if req.Contact != nil {
		c := contactFromDTO(*req.Contact)
		if c != ad.Contact {
			fields["contact_name"] = c.Name
			fields["contact_phone"] = c.Phone
			fields["contact_whatsapp"] = c.WhatsApp
			fields["contact_email"] = c.Email
		}
	}
	return fields
}

// Approve 管理员审核通过，已支付的广告同时上线
func (s *AdService) Approve(ctx context.Context, id int64) (*dto.AdInfo, error) {
	ad, err := s.apply(ctx, id, lifecycle.Approve{}, nil)
	if err != nil {
		return nil, err
	}
	return buildAdInfo(ad), nil
}

// Reject 管理员驳回
func (s *AdService) Reject(ctx context.Context, id int64, reason string) (*dto.AdInfo, error) {
	ad, err := s.apply(ctx, id, lifecycle.Reject{}, map[string]interface{}{"rejection_reason": reason})
	if err != nil {
		return nil, err
	}
	return buildAdInfo(ad), nil
}

// OnPaymentResult 支付结果回调入口，重复投递是幂等的
func (s *AdService) OnPaymentResult(ctx context.Context, id int64, succeeded bool) error {
	_, err := s.apply(ctx, id, lifecycle.PaymentResult{Succeeded: succeeded}, nil)
	return err
}

// apply 读取当前状态、计算下一状态、条件写回。
// 条件落空说明有并发写入，重新读取后再算一次。
func (s *AdService) apply(ctx context.Context, id int64, ev lifecycle.Event, extra map[string]interface{}) (*model.Advertisement, error) {
	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		ad, err := s.load(id)
		if err != nil {
			return nil, err
		}

		from := ad.State()
		to, err := lifecycle.Next(from, ev, s.clock())
		if err != nil {
			metrics.Transitions.WithLabelValues(ev.Name(), metrics.OutcomeRejected).Inc()
			return nil, err
		}
		if to.Equal(from) {
			metrics.Transitions.WithLabelValues(ev.Name(), metrics.OutcomeNoop).Inc()
			return ad, nil
		}

		ok, err := s.adRepo.UpdateLifecycle(id, from, to, extra)
		if err != nil {
			metrics.Transitions.WithLabelValues(ev.Name(), metrics.OutcomeError).Inc()
			return nil, fmt.Errorf("update lifecycle: %w", err)
		}
		if !ok {
			s.log.Debug("lifecycle guard missed, reloading", "ad_id", id, "event", ev.Name(), "attempt", attempt+1)
			continue
		}

		ad.ApplyState(to)
		if reason, ok := extra["rejection_reason"].(string); ok {
			ad.RejectionReason = reason
		}
		metrics.Transitions.WithLabelValues(ev.Name(), metrics.OutcomeOK).Inc()

		events := []string{ev.Name()}
		if !from.Activated() && to.Activated() {
			events = append(events, "activate")
		}
		s.log.Info("advertisement transitioned",
			"ad_id", id, "event", ev.Name(), "from", string(from.Status), "to", string(to.Status),
			"payment_status", string(to.PaymentStatus))
		s.notifier.AdChanged(ctx, ad, events...)
		return ad, nil
	}

	metrics.Transitions.WithLabelValues(ev.Name(), metrics.OutcomeConflict).Inc()
	return nil, lifecycle.ErrConflict
}

// Delete 广告主或管理员删除广告，媒体异步清理
func (s *AdService) Delete(ctx context.Context, id, requesterID int64, isAdmin bool) error {
	ad, err := s.load(id)
	if err != nil {
		return err
	}
	if !isAdmin && ad.UserID != requesterID {
		return lifecycle.ErrForbidden
	}

	if err := s.adRepo.Delete(id); err != nil {
		return fmt.Errorf("delete advertisement: %w", err)
	}
	if s.media != nil {
		s.media.RemoveAdMedia(ctx, ad)
	}

	s.log.Info("advertisement deleted", "ad_id", id, "requester_id", requesterID, "admin", isAdmin)
	return nil
}

// SweepExpired 批量下线到期广告并逐条通知广告主。
// 部分批次失败时，已下线的记录照常通知。
func (s *AdService) SweepExpired(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	expired, err := s.adRepo.ExpireDue(s.clock(), sweepBatchSize)
	for _, ad := range expired {
		metrics.Transitions.WithLabelValues(lifecycle.Expire{}.Name(), metrics.OutcomeOK).Inc()
		s.notifier.AdChanged(ctx, ad, lifecycle.Expire{}.Name())
	}
	if err != nil {
		return int64(len(expired)), fmt.Errorf("expire due advertisements: %w", err)
	}
	return int64(len(expired)), nil
}

// CountDue 已到期待下线的数量（dry run 使用）
func (s *AdService) CountDue() (int64, error) {
	return s.adRepo.CountDue(s.clock())
}

func contactFromDTO(c dto.ContactInfo) model.Contact {
	return model.Contact{
		Name:     c.Name,
		Phone:    c.Phone,
		WhatsApp: c.WhatsApp,
		Email:    c.Email,
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func buildAdInfo(ad *model.Advertisement) *dto.AdInfo {
	images := []string(ad.Images)
	if images == nil {
		images = []string{}
	}
	return &dto.AdInfo{
		ID:          ad.ID,
		UserID:      ad.UserID,
		Title:       ad.Title,
		CategoryID:  ad.CategoryID,
		Price:       ad.Price,
		Description: ad.Description,
		Location:    ad.Location,
		Images:      images,
		Video:       ad.Video,
		Contact: dto.ContactInfo{
			Name:     ad.Contact.Name,
			Phone:    ad.Contact.Phone,
			WhatsApp: ad.Contact.WhatsApp,
			Email:    ad.Contact.Email,
		},
		Status:          string(ad.Status),
		PaymentStatus:   string(ad.PaymentStatus),
		DurationDays:    ad.DurationDays,
		ActivatedAt:     formatTime(ad.ActivatedAt),
		ExpiresAt:       formatTime(ad.ExpiresAt),
		ApprovedDate:    formatTime(ad.ApprovedDate),
		RejectionReason: ad.RejectionReason,
		CreatedAt:       ad.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func buildAdInfos(ads []*model.Advertisement) []*dto.AdInfo {
	items := make([]*dto.AdInfo, 0, len(ads))
	for _, ad := range ads {
		items = append(items, buildAdInfo(ad))
	}
	return items
}
