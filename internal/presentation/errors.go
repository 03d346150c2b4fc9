package presentation

import (
	"errors"
	"net/http"

	"github.com/RaikyD/backoffice-dashboard/internal/application"
	"github.com/RaikyD/backoffice-dashboard/internal/listview"
	"github.com/RaikyD/backoffice-dashboard/internal/logger"
	"github.com/RaikyD/backoffice-dashboard/internal/presentation/helpers"
	"github.com/RaikyD/backoffice-dashboard/internal/remote"
)

// writeError maps the error taxonomy onto HTTP: local validation and filter
// errors are 400 and remote 4xx keep their status. Remote 5xx and
// undecodable replies are 502, as are transport failures.
func writeError(w http.ResponseWriter, err error) {
	var ve *listview.ValidationError
	var re *remote.Error

	switch {
	case errors.As(err, &ve):
		helpers.HttpErrorWith(w, http.StatusBadRequest, "validation failed", map[string]any{"fields": ve.Fields})

	case errors.Is(err, listview.ErrUnknownField), errors.Is(err, listview.ErrInvalidValue):
		helpers.HttpError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, application.ErrUnknownEntity):
		helpers.HttpError(w, http.StatusNotFound, err.Error())

	case errors.As(err, &re) && re.Status != 0:
		status := http.StatusBadGateway
		if re.Status >= 400 && re.Status < 500 {
			status = re.Status
		}
		logger.Warn("remote store rejected request", "op", re.Op, "status", re.Status, "message", re.Message)
		helpers.HttpErrorWith(w, status, "remote store rejected request", map[string]any{
			"remoteStatus": re.Status,
			"message":      re.Message,
		})

	case errors.Is(err, remote.ErrTransport):
		logger.Warn("remote store unreachable", "err", err)
		helpers.HttpError(w, http.StatusBadGateway, "remote store unreachable")

	default:
		logger.Error("request failed", "err", err)
		helpers.HttpError(w, http.StatusInternalServerError, "internal error")
	}
}
