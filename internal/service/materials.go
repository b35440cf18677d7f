package service

import (
	"context"
	"fmt"

	"github.com/yourusername/study-engine/pkg/materials"
)

// Materials integration: an optional external-notes provider whose
// chapter references can be attached to study blocks. Unconfigured
// installs refuse the operations with a precondition error.

type MaterialsConfig struct {
	Auth   *materials.AuthService
	Client *materials.Client
}

// WithMaterials attaches the provider; call once during wiring.
func (s *Service) WithMaterials(cfg MaterialsConfig) *Service {
	s.materials = &cfg
	return s
}

func (s *Service) MaterialsAuthURL(state string) (string, error) {
	if s.materials == nil || s.materials.Auth == nil {
		return "", &PreconditionError{Reason: "materials provider not configured"}
	}
	return s.materials.Auth.GetAuthURL(state), nil
}

func (s *Service) MaterialsExchangeCode(ctx context.Context, code string) (*materials.TokenResponse, error) {
	if s.materials == nil || s.materials.Auth == nil {
		return nil, &PreconditionError{Reason: "materials provider not configured"}
	}

	token, err := s.materials.Auth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange materials auth code: %w", err)
	}
	return token, nil
}

// MaterialsChapterRefs lists the chapter-slug notes of one section so
// the caller can attach them to chapters and placed study blocks.
func (s *Service) MaterialsChapterRefs(ctx context.Context, accessToken, sectionID string) ([]materials.Ref, error) {
	if s.materials == nil || s.materials.Client == nil {
		return nil, &PreconditionError{Reason: "materials provider not configured"}
	}

	refs, err := s.materials.Client.ChapterRefs(accessToken, sectionID)
	if err != nil {
		return nil, fmt.Errorf("list chapter material refs (section_id: %s): %w", sectionID, err)
	}
	return refs, nil
}
