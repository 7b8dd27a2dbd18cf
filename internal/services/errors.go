package services

import (
	"errors"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/rocjay1/spend-analytics/internal/models"
)

// ErrSummaryNotFound is returned when no summary has been stored for a user.
var ErrSummaryNotFound = models.ErrSummaryNotFound

// ErrSnapshotNotFound is returned when an archived snapshot does not exist.
var ErrSnapshotNotFound = errors.New("analytics snapshot not found")

// ErrInvalidSnapshotName is returned for names that would escape the user's prefix.
var ErrInvalidSnapshotName = errors.New("invalid snapshot name")

// hasErrorCode reports whether err is an Azure response error carrying one of codes.
func hasErrorCode(err error, codes ...string) bool {
	var azErr *azcore.ResponseError
	if !errors.As(err, &azErr) {
		return false
	}
	for _, c := range codes {
		if azErr.ErrorCode == c {
			return true
		}
	}
	return false
}

func isNotFound(err error) bool {
	var azErr *azcore.ResponseError
	return errors.As(err, &azErr) && azErr.StatusCode == http.StatusNotFound
}
