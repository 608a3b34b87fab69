package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ludo-technologies/fixeval/domain"
	"github.com/ludo-technologies/fixeval/service"
)

// PrepareRequest describes the judge bundle to write
type PrepareRequest struct {
	Repository string
	PRNumber   string
	PRURL      string
	DiffPath   string
	WorkDir    string
	OutputDir  string
}

// PrepareUseCase writes the instructions an external judge follows
type PrepareUseCase struct {
	schema     *domain.MetricSchema
	fileHelper *FileHelper
	logger     *slog.Logger
}

// NewPrepareUseCase creates a new prepare use case
func NewPrepareUseCase(schema *domain.MetricSchema, logger *slog.Logger) *PrepareUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &PrepareUseCase{
		schema:     schema,
		fileHelper: NewFileHelper(),
		logger:     logger,
	}
}

// Execute writes the bundle and returns the paths involved
func (uc *PrepareUseCase) Execute(_ context.Context, req PrepareRequest) (*service.InstructionBundle, error) {
	if err := uc.validateRequest(req); err != nil {
		return nil, domain.NewInvalidInputError("invalid request", err)
	}

	diff, err := uc.fileHelper.ReadOptionalFile(req.DiffPath)
	if err != nil {
		return nil, err
	}
	if err := uc.fileHelper.EnsureDir(req.OutputDir); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	bundle, err := service.WriteInstructionBundle(service.InstructionRequest{
		Repository: req.Repository,
		PRNumber:   req.PRNumber,
		PRURL:      req.PRURL,
		Diff:       diff,
		WorkDir:    req.WorkDir,
		OutputDir:  req.OutputDir,
	}, uc.schema)
	if err != nil {
		return nil, err
	}

	uc.logger.Info("judge instructions written",
		"instructions", bundle.InstructionsPath, "artifact", bundle.ArtifactPath)
	return bundle, nil
}

// validateRequest validates the prepare request
func (uc *PrepareUseCase) validateRequest(req PrepareRequest) error {
	if uc.schema == nil {
		return fmt.Errorf("metric schema is required")
	}
	if strings.TrimSpace(req.Repository) == "" {
		return fmt.Errorf("repository is required")
	}
	if strings.TrimSpace(req.PRNumber) == "" {
		return fmt.Errorf("pull request number is required")
	}
	if req.DiffPath != "" {
		exists, err := uc.fileHelper.FileExists(req.DiffPath)
		if err != nil {
			return fmt.Errorf("cannot access diff file %s: %w", req.DiffPath, err)
		}
		if !exists {
			return fmt.Errorf("diff file not found: %s", req.DiffPath)
		}
	}
	return nil
}
