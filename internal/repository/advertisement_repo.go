package repository

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/namma_kumta_server/internal/lifecycle"
	"github.com/qs3c/namma_kumta_server/internal/model"
)

type AdvertisementRepository struct {
	db *gorm.DB
}

func NewAdvertisementRepository(db *gorm.DB) *AdvertisementRepository {
	return &AdvertisementRepository{db: db}
}

// PublicFilter 公开列表筛选条件
type PublicFilter struct {
	CategoryID int64
	Location   string
	Search     string
}

func (r *AdvertisementRepository) Create(ad *model.Advertisement) error {
	return r.db.Create(ad).Error
}

func (r *AdvertisementRepository) GetByID(id int64) (*model.Advertisement, error) {
	var ad model.Advertisement
	err := r.db.Where("id = ?", id).First(&ad).Error
	if err != nil {
		return nil, err
	}
	return &ad, nil
}

// UpdateLifecycle 条件更新生命周期字段。
// 只有当库中记录仍处于 from 所描述的状态时才会写入 to 与 from 的差异列，
// 返回 false 表示记录已被其他请求修改。
func (r *AdvertisementRepository) UpdateLifecycle(id int64, from, to lifecycle.State, extra map[string]interface{}) (bool, error) {
	fields := lifecycleDiff(from, to)
	for k, v := range extra {
		fields[k] = v
	}
	if len(fields) == 0 {
		return true, nil
	}

	query := r.db.Model(&model.Advertisement{}).
		Where("id = ? AND status = ? AND payment_status = ? AND duration_days = ?",
			id, from.Status, from.PaymentStatus, from.DurationDays)
	if from.Activated() {
		query = query.Where("activated_at IS NOT NULL")
	} else {
		query = query.Where("activated_at IS NULL")
	}

	result := query.Updates(fields)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func lifecycleDiff(from, to lifecycle.State) map[string]interface{} {
	fields := map[string]interface{}{}
	if from.Status != to.Status {
		fields["status"] = to.Status
	}
	if from.PaymentStatus != to.PaymentStatus {
		fields["payment_status"] = to.PaymentStatus
	}
	if from.DurationDays != to.DurationDays {
		fields["duration_days"] = to.DurationDays
	}
	if !sameTime(from.ActivatedAt, to.ActivatedAt) {
		fields["activated_at"] = to.ActivatedAt
	}
	if !sameTime(from.ExpiresAt, to.ExpiresAt) {
		fields["expires_at"] = to.ExpiresAt
	}
	if !sameTime(from.ApprovedAt, to.ApprovedAt) {
		fields["approved_date"] = to.ApprovedAt
	}
	return fields
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// UpdateContent 广告主编辑内容。
// 条件：属于 ownerID、已支付且时长仍是读取时的 durationDays，editFields 不会包含 duration_days。
func (r *AdvertisementRepository) UpdateContent(id, ownerID int64, durationDays int, fields map[string]interface{}) (bool, error) {
	if len(fields) == 0 {
		return true, nil
	}

	result := r.db.Model(&model.Advertisement{}).
		Where("id = ? AND user_id = ? AND payment_status = ? AND duration_days = ?",
			id, ownerID, lifecycle.PaymentPaid, durationDays).
		Updates(fields)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ExpireDue 分批下线到期广告，返回本次被下线的记录。
// 每批先取到期 id，再用带到期条件的批量 UPDATE 写入，期间被其他请求改动的记录不会被覆盖。
func (r *AdvertisementRepository) ExpireDue(now time.Time, batchSize int) ([]*model.Advertisement, error) {
	var expired []*model.Advertisement
	for {
		var ids []int64
		if err := r.dueQuery(now).Order("id").Limit(batchSize).Pluck("id", &ids).Error; err != nil {
			return expired, err
		}
		if len(ids) == 0 {
			return expired, nil
		}

		result := r.dueQuery(now).Where("id IN ?", ids).Updates(map[string]interface{}{
			"status": lifecycle.StatusExpired,
		})
		if result.Error != nil {
			return expired, result.Error
		}

		var batch []*model.Advertisement
		if err := r.db.Where("id IN ? AND status = ?", ids, lifecycle.StatusExpired).Find(&batch).Error; err != nil {
			return expired, err
		}
		expired = append(expired, batch...)

		if result.RowsAffected == 0 || len(ids) < batchSize {
			return expired, nil
		}
	}
}

// CountDue 统计已到期但尚未下线的广告
func (r *AdvertisementRepository) CountDue(now time.Time) (int64, error) {
	var count int64
	err := r.dueQuery(now).Count(&count).Error
	return count, err
}

func (r *AdvertisementRepository) dueQuery(now time.Time) *gorm.DB {
	return r.db.Model(&model.Advertisement{}).
		Where("status = ? AND activated_at IS NOT NULL AND expires_at < ?", lifecycle.StatusActive, now.UTC())
}

// ListByUser 获取用户的广告列表
func (r *AdvertisementRepository) ListByUser(userID int64, status string, page, pageSize int) ([]*model.Advertisement, int64, error) {
	query := r.db.Model(&model.Advertisement{}).Where("user_id = ?", userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	return r.paginate(query, "created_at DESC", page, pageSize)
}

// ListByStatus 管理端按状态查询，审核队列按提交时间正序
func (r *AdvertisementRepository) ListByStatus(status string, page, pageSize int) ([]*model.Advertisement, int64, error) {
	query := r.db.Model(&model.Advertisement{})
	order := "created_at DESC"
	if status != "" {
		query = query.Where("status = ?", status)
		if status == string(lifecycle.StatusPending) {
			order = "created_at ASC"
		}
	}
	return r.paginate(query, order, page, pageSize)
}

// ListPublic 获取正在展示的广告（已到期但还没被扫描的也排除）。
// 到期判断与 lifecycle.IsDue 一致：恰好到 expires_at 时仍在展示。
func (r *AdvertisementRepository) ListPublic(filter PublicFilter, now time.Time, page, pageSize int) ([]*model.Advertisement, int64, error) {
	query := r.db.Model(&model.Advertisement{}).
		Where("status = ? AND expires_at >= ?", lifecycle.StatusActive, now.UTC())

	if filter.CategoryID > 0 {
		query = query.Where("category_id = ?", filter.CategoryID)
	}
	if filter.Location != "" {
		query = query.Where("location LIKE ? ESCAPE '!'", containsPattern(filter.Location))
	}
	if filter.Search != "" {
		like := containsPattern(filter.Search)
		query = query.Where("title LIKE ? ESCAPE '!' OR description LIKE ? ESCAPE '!'", like, like)
	}

	return r.paginate(query, "activated_at DESC", page, pageSize)
}

// MySQL 与 SQLite 对反斜杠转义的处理不同，统一用 ! 作转义符
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// containsPattern 用户输入按字面匹配，% 和 _ 不作通配符
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func (r *AdvertisementRepository) paginate(query *gorm.DB, order string, page, pageSize int) ([]*model.Advertisement, int64, error) {
	var ads []*model.Advertisement
	var total int64

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Order(order).Offset(offset).Limit(pageSize).Find(&ads).Error; err != nil {
		return nil, 0, err
	}

	return ads, total, nil
}

// CountByStatus 各状态广告数量
func (r *AdvertisementRepository) CountByStatus() (map[lifecycle.Status]int64, error) {
	var rows []struct {
		Status lifecycle.Status
		Count  int64
	}
	err := r.db.Model(&model.Advertisement{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[lifecycle.Status]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *AdvertisementRepository) Delete(id int64) error {
	return r.db.Delete(&model.Advertisement{}, id).Error
}
