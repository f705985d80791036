package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/smallbiznis/hrledger/internal/audit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectCoupon      = "coupon"
	ObjectCredit      = "credit"
	ObjectTransaction = "transaction"
	ObjectSettings    = "settings"
	ObjectAuditLog    = "audit_log"
)

const (
	ActionCouponView       = "coupon.view"
	ActionCouponCreate     = "coupon.create"
	ActionCouponDeactivate = "coupon.deactivate"

	ActionCreditAdjust = "credit.adjust"

	ActionTransactionView      = "transaction.view"
	ActionTransactionReconcile = "transaction.reconcile"

	ActionPaymentModeView   = "settings.payment_mode.view"
	ActionPaymentModeUpdate = "settings.payment_mode.update"

	ActionAuditLogView = "audit_log.view"
)

const (
	RoleAdmin   = "admin"
	RoleSupport = "support"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

// Authorize checks actor (e.g. "admin_key:ops") holding role against the
// policy for object and action. Denials are audited.
func (s *ServiceImpl) Authorize(ctx context.Context, actor string, role string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" || !strings.Contains(actor, ":") {
		return ErrInvalidActor
	}
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return ErrInvalidRole
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	roleName := fmt.Sprintf("role:%s", role)
	if err := s.ensureGrouping(actor, roleName); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(actor, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Warn("authorization denied",
			zap.String("actor", actor),
			zap.String("role", role),
			zap.String("action", action),
		)
		s.audit(ctx, "authorization.denied", actor, role, object, action)
		return ErrForbidden
	}

	if shouldAuditGrant(action) {
		s.audit(ctx, "authorization.granted", actor, role, object, action)
	}
	return nil
}

// ensureGrouping keeps exactly one role link per actor so a key whose role
// changed in configuration loses the old grants.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func (s *ServiceImpl) audit(ctx context.Context, event string, actor string, role string, object string, action string) {
	if s.auditSvc == nil {
		return
	}
	actorID := actor
	targetID := "capability"
	if err := s.auditSvc.AuditLog(ctx, string(auditdomain.ActorTypeAdmin), &actorID, event, "authorization", &targetID, map[string]any{
		"object": object,
		"action": action,
		"role":   role,
	}); err != nil {
		s.log.Warn("failed to audit authorization decision", zap.Error(err))
	}
}

func shouldAuditGrant(action string) bool {
	switch action {
	case ActionCreditAdjust, ActionPaymentModeUpdate, ActionCouponDeactivate:
		return true
	default:
		return false
	}
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Support is read-only
		{"role:support", ObjectCoupon, ActionCouponView},
		{"role:support", ObjectTransaction, ActionTransactionView},
		{"role:support", ObjectSettings, ActionPaymentModeView},

		{"role:admin", ObjectCoupon, "*"},
		{"role:admin", ObjectCredit, ActionCreditAdjust},
		{"role:admin", ObjectTransaction, "*"},
		{"role:admin", ObjectSettings, "*"},
		{"role:admin", ObjectAuditLog, ActionAuditLogView},
	}

	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
