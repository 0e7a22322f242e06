package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ecoscan/backend/internal/domain"
)

// maxExplanationChars caps explanation length for consistent display.
const maxExplanationChars = 600

// ExplanationService produces a short consumer-facing rationale for a
// grade. A generator collaborator (LLM-backed in production) is optional;
// when it is absent or fails, a deterministic template takes over so a scan
// always ships with an explanation.
type ExplanationService struct {
	generator domain.ExplanationGenerator
	logger    *zap.Logger
}

func NewExplanationService(generator domain.ExplanationGenerator, logger *zap.Logger) *ExplanationService {
	return &ExplanationService{
		generator: generator,
		logger:    logger,
	}
}

// Explain returns a non-empty explanation for the request, truncated to the
// display cap.
func (s *ExplanationService) Explain(ctx context.Context, req domain.ExplanationRequest) string {
	if s.generator != nil {
		text, err := s.generator.GenerateExplanation(ctx, req)
		if err == nil && strings.TrimSpace(text) != "" {
			return truncateExplanation(strings.TrimSpace(text))
		}
		if err != nil {
			s.logger.Warn("explanation generation failed, using template fallback",
				zap.String("grade", req.Grade),
				zap.Error(err))
		}
	}
	return truncateExplanation(templateExplanation(req))
}

// templateExplanation builds the deterministic fallback text.
func templateExplanation(req domain.ExplanationRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "This item scores %.2f out of 5 (grade %s) based on its composition: %s.",
		req.ImpactScore, req.Grade, req.MaterialSummary)

	switch req.Grade {
	case "A":
		b.WriteString(" Its fibers are among the lowest-impact options available, with modest water and energy footprints.")
	case "B":
		b.WriteString(" The composition leans on lower-impact fibers, though there is still room to improve.")
	case "C":
		b.WriteString(" The composition mixes moderate-impact fibers; water use or processing chemistry keeps it mid-range.")
	case "D":
		b.WriteString(" The composition relies heavily on high-impact fibers such as conventional cotton or virgin synthetics.")
	default:
		b.WriteString(" The dominant fibers carry very high environmental costs across water, emissions, and end-of-life.")
	}

	if len(req.Certifications) > 0 {
		fmt.Fprintf(&b, " Credentials on record (%s) improved the score.",
			strings.Join(req.Certifications, ", "))
	}

	if req.Origin != "" {
		fmt.Fprintf(&b, " Manufactured in %s.", req.Origin)
	}

	return b.String()
}

// truncateExplanation caps the text at maxExplanationChars characters,
// cutting on a rune boundary.
func truncateExplanation(text string) string {
	runes := []rune(text)
	if len(runes) <= maxExplanationChars {
		return text
	}
	return string(runes[:maxExplanationChars-3]) + "..."
}
