package http

import (
	"net/http"

	"barbershop/backend/internal/domain/blocking"
	"barbershop/backend/internal/domain/news"
	"barbershop/backend/internal/domain/profile"
	"barbershop/backend/internal/domain/reservation"
	"barbershop/backend/internal/i18n"
)

// Anything that is not a domain error came from the store.

func mapReservationError(err error) (int, i18n.Key) {
	switch {
	case reservation.IsErrUnauthorized(err):
		return http.StatusUnauthorized, i18n.MsgUnauthorized
	case reservation.IsErrPhoneRequired(err):
		return http.StatusBadRequest, i18n.MsgPhoneRequired
	case reservation.IsErrBadRequest(err):
		return http.StatusBadRequest, i18n.MsgBadRequest
	case reservation.IsErrNotFound(err):
		return http.StatusNotFound, i18n.MsgNothingToCancel
	case reservation.IsErrConflict(err):
		return http.StatusConflict, i18n.MsgConflict
	case reservation.IsErrBlocked(err):
		return http.StatusUnprocessableEntity, i18n.MsgBlocked
	case reservation.IsErrPast(err):
		return http.StatusUnprocessableEntity, i18n.MsgPast
	default:
		return http.StatusBadGateway, i18n.MsgUnavailable
	}
}

func mapBlockingError(err error) (int, i18n.Key) {
	switch {
	case blocking.IsErrBadRequest(err):
		return http.StatusBadRequest, i18n.MsgBadRequest
	default:
		return http.StatusBadGateway, i18n.MsgUnavailable
	}
}

func mapProfileError(err error) (int, i18n.Key) {
	switch {
	case profile.IsErrUnauthorized(err):
		return http.StatusUnauthorized, i18n.MsgUnauthorized
	case profile.IsErrNotFound(err):
		return http.StatusNotFound, i18n.MsgNotFound
	case profile.IsErrBadRequest(err):
		return http.StatusBadRequest, i18n.MsgBadPhone
	case profile.IsErrSetupFailed(err):
		return http.StatusServiceUnavailable, i18n.MsgSetupFailed
	default:
		return http.StatusBadGateway, i18n.MsgUnavailable
	}
}

func mapNewsError(err error) (int, i18n.Key) {
	switch {
	case news.IsErrBadRequest(err):
		return http.StatusBadRequest, i18n.MsgBadNews
	default:
		return http.StatusBadGateway, i18n.MsgUnavailable
	}
}
