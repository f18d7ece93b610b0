package targets

import (
	"context"
	"fmt"

	"gopkg.in/ini.v1"
)

// Target is one customer account a batch scan runs against.
type Target struct {
	Name       string
	AccountID  string
	RoleARN    string
	ExternalID string
	Region     string
}

type Registry interface {
	GetTargets(ctx context.Context) ([]string, error)
	GetTarget(ctx context.Context, name string) (*Target, error)
	All(ctx context.Context) ([]Target, error)
}

type iniRegistry struct {
	cfg *ini.File
}

// NewRegistry loads an ini file with one section per target:
//
//	[acme-prod]
//	account_id  = 123456789012
//	role_arn    = arn:aws:iam::123456789012:role/Loxe-Evidence-Tracer-Role
//	external_id = loxe-beta-0123456789ab
//	region      = eu-west-1
func NewRegistry(path string) (Registry, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load targets: %w", err)
	}
	return &iniRegistry{cfg: cfg}, nil
}

func (r *iniRegistry) GetTargets(_ context.Context) ([]string, error) {
	var names []string
	for _, section := range r.cfg.Sections() {
		if len(section.Keys()) > 0 {
			names = append(names, section.Name())
		}
	}
	return names, nil
}

func (r *iniRegistry) GetTarget(_ context.Context, name string) (*Target, error) {
	section, err := r.cfg.GetSection(name)
	if err != nil {
		return nil, fmt.Errorf("target %s not found", name)
	}

	t := &Target{
		Name:       name,
		AccountID:  section.Key("account_id").String(),
		RoleARN:    section.Key("role_arn").String(),
		ExternalID: section.Key("external_id").String(),
		Region:     section.Key("region").String(),
	}

	switch {
	case t.AccountID == "":
		return nil, fmt.Errorf("target %s: account_id is required", name)
	case t.RoleARN == "":
		return nil, fmt.Errorf("target %s: role_arn is required", name)
	case t.ExternalID == "":
		return nil, fmt.Errorf("target %s: external_id is required", name)
	}
	return t, nil
}

func (r *iniRegistry) All(ctx context.Context) ([]Target, error) {
	names, err := r.GetTargets(ctx)
	if err != nil {
		return nil, err
	}

	res := make([]Target, 0, len(names))
	for _, name := range names {
		t, err := r.GetTarget(ctx, name)
		if err != nil {
			return nil, err
		}
		res = append(res, *t)
	}
	return res, nil
}
