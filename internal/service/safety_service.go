package service

import (
	"context"
	"strings"

	"imin-server/internal/model"
	"imin-server/pkg/apperr"
	"imin-server/pkg/clock"

	"github.com/google/uuid"
)

const maxReportDetailsLength = 2000

// ReportInput 举报参数
type ReportInput struct {
	ThreadID       string
	MessageID      *string
	ReportedUserID *string
	Reason         model.ReportReason
	Details        *string
}

// SafetyService 拉黑与举报
type SafetyService struct {
	blocks  BlockStore
	reports ReportStore
	users   UserStore
	clock   clock.Clock
}

// NewSafetyService 创建SafetyService实例
func NewSafetyService(stores *Stores, clk clock.Clock) *SafetyService {
	return &SafetyService{
		blocks:  stores.Blocks,
		reports: stores.Reports,
		users:   stores.Users,
		clock:   clk,
	}
}

// Block 拉黑，重复调用无副作用
func (s *SafetyService) Block(ctx context.Context, blockerID, blockedID string) (*model.Block, error) {
	blockedID = strings.TrimSpace(blockedID)
	if blockedID == "" {
		return nil, apperr.Validation("user_id must not be empty")
	}
	if blockedID == blockerID {
		return nil, apperr.InvalidRecipient("cannot block yourself")
	}
	if _, err := s.users.GetByID(ctx, blockedID); err != nil {
		return nil, storeErr(err, "user not found")
	}
	block := &model.Block{BlockerID: blockerID, BlockedID: blockedID, CreatedAt: s.clock.Now()}
	if err := s.blocks.Create(ctx, block); err != nil {
		return nil, apperr.Internal(err)
	}
	return block, nil
}

// Unblock 取消拉黑，未拉黑时无副作用
func (s *SafetyService) Unblock(ctx context.Context, blockerID, blockedID string) error {
	if err := s.blocks.Delete(ctx, blockerID, blockedID); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// IsBlocked viewerID 是否拉黑了 otherID（有方向）
func (s *SafetyService) IsBlocked(ctx context.Context, viewerID, otherID string) (bool, error) {
	ok, err := s.blocks.Exists(ctx, viewerID, otherID)
	if err != nil {
		return false, apperr.Internal(err)
	}
	return ok, nil
}

// ListBlocked 用户拉黑的人
func (s *SafetyService) ListBlocked(ctx context.Context, blockerID string) ([]*model.Block, error) {
	list, err := s.blocks.ListByBlocker(ctx, blockerID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return list, nil
}

// Report 追加举报记录，只校验举报原因
func (s *SafetyService) Report(ctx context.Context, reporterID string, in ReportInput) (*model.Report, error) {
	if !in.Reason.Valid() {
		return nil, apperr.Validation("reason must be one of spam, harassment, hate, sexual_content, violence, other")
	}
	threadID := strings.TrimSpace(in.ThreadID)
	if threadID == "" {
		return nil, apperr.Validation("thread_id must not be empty")
	}

	report := &model.Report{
		ID:             uuid.NewString(),
		ReporterID:     reporterID,
		ThreadID:       threadID,
		MessageID:      optional(in.MessageID),
		ReportedUserID: optional(in.ReportedUserID),
		Reason:         in.Reason,
		Details:        optional(in.Details),
		CreatedAt:      s.clock.Now(),
	}
	if report.Details != nil && len([]rune(*report.Details)) > maxReportDetailsLength {
		return nil, apperr.Validation("details is too long")
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, apperr.Internal(err)
	}
	return report, nil
}

// optional 去除空白，空字符串视为未提供
func optional(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
