package services

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/spanner"

	"github.com/light-bringer/procat-editor/internal/app/scenario/queries/get_package"
	"github.com/light-bringer/procat-editor/internal/app/scenario/queries/list_section_saves"
	"github.com/light-bringer/procat-editor/internal/app/scenario/repo"
	"github.com/light-bringer/procat-editor/internal/app/scenario/usecases/create_package"
	"github.com/light-bringer/procat-editor/internal/app/scenario/usecases/save_section"
	"github.com/light-bringer/procat-editor/internal/pkg/clock"
	"github.com/light-bringer/procat-editor/internal/pkg/committer"
	"github.com/light-bringer/procat-editor/internal/transport/grpc/scenario"
	httphandler "github.com/light-bringer/procat-editor/internal/transport/http"
)

// ServiceOptions holds all dependencies for the application.
type ServiceOptions struct {
	SpannerClient *spanner.Client

	SaveSection *save_section.Interactor
	GetPackage  *get_package.Query

	// HTTPServer serves the scenario package API.
	HTTPServer *httphandler.Server
	// LocalSaver saves editor sections in-process.
	LocalSaver *scenario.LocalSaver
}

// NewServiceOptions creates and wires up all application dependencies.
func NewServiceOptions(ctx context.Context, spannerDB string, logger *slog.Logger) (*ServiceOptions, error) {
	// 1. Initialize Spanner client
	spannerClient, err := spanner.NewClient(ctx, spannerDB)
	if err != nil {
		return nil, fmt.Errorf("failed to create Spanner client: %w", err)
	}

	opts := Wire(spannerClient, clock.NewRealClock(), logger)
	opts.SpannerClient = spannerClient
	return opts, nil
}

// Wire builds the object graph over an existing client.
func Wire(spannerClient *spanner.Client, clk clock.Clock, logger *slog.Logger) *ServiceOptions {
	// 2. Create infrastructure components
	comm := committer.NewCommitter(spannerClient)

	// 3. Create repositories
	packageRepo := repo.NewPackageRepo(spannerClient)
	outboxRepo := repo.NewOutboxRepo()
	readModel := repo.NewReadModel(spannerClient)

	// 4. Create command use cases (write operations)
	createPackage := create_package.NewInteractor(packageRepo, comm, clk)
	saveSection := save_section.NewInteractor(packageRepo, outboxRepo, comm, clk)

	// 5. Create query use cases (read operations)
	getPackage := get_package.NewQuery(readModel)
	listSaves := list_section_saves.NewQuery(readModel)

	// 6. Create transports
	return &ServiceOptions{
		SaveSection: saveSection,
		GetPackage:  getPackage,
		HTTPServer:  httphandler.NewServer(createPackage, saveSection, getPackage, listSaves, logger),
		LocalSaver:  scenario.NewLocalSaver(saveSection),
	}
}

// Close closes all resources.
func (s *ServiceOptions) Close() {
	if s.SpannerClient != nil {
		s.SpannerClient.Close()
	}
}
