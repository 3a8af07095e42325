package scenario

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/light-bringer/procat-editor/internal/app/scenario/domain"
)

// validateSaveTarget validates the package and section a saver is bound to.
func validateSaveTarget(packageID, section string) error {
	if packageID == "" {
		return status.Error(codes.InvalidArgument, "package_id is required")
	}
	for _, s := range domain.Sections() {
		if s == section {
			return nil
		}
	}
	return withDetails(codes.InvalidArgument, "unknown section "+section, domain.CodeSectionUnknown, nil)
}
