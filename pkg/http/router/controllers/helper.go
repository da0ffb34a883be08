package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/opennavx/navsim/pkg/util"
)

type envelope map[string]interface{}

func writeJSON(w http.ResponseWriter, status int, data envelope, headers http.Header) error {
	js, err := json.Marshal(data)
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(js)

	return nil
}

func errorResponseJSON(w http.ResponseWriter, r *http.Request, status int, message string) {
	env := envelope{"error": map[string]string{
		"code":    http.StatusText(status),
		"message": message,
	}}

	if err := writeJSON(w, status, env, nil); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponseJSON(w, r, http.StatusBadRequest, err.Error())
}

func serverErrorResponse(log *zap.Logger, w http.ResponseWriter, r *http.Request, err error) {
	log.Error("internal server error", zap.Error(err), zap.String("path", r.URL.Path))
	errorResponseJSON(w, r, http.StatusInternalServerError, util.MessageInternalServerError)
}

// writeServiceError maps the service error code onto an http status.
func writeServiceError(log *zap.Logger, w http.ResponseWriter, r *http.Request, err error) {
	var domainErr *util.Error
	if errors.As(err, &domainErr) {
		switch domainErr.Code() {
		case util.ErrNotFound:
			errorResponseJSON(w, r, http.StatusNotFound, err.Error())
			return
		case util.ErrConflict:
			errorResponseJSON(w, r, http.StatusConflict, err.Error())
			return
		case util.ErrBadParamInput:
			errorResponseJSON(w, r, http.StatusBadRequest, err.Error())
			return
		}
	}

	switch {
	case errors.Is(err, util.ErrSnapFailed), errors.Is(err, util.ErrUnreachable):
		errorResponseJSON(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, util.ErrNotFound):
		errorResponseJSON(w, r, http.StatusNotFound, err.Error())
	default:
		serverErrorResponse(log, w, r, err)
	}
}

func translateError(err error, trans ut.Translator) (errs []error) {
	if err == nil {
		return nil
	}
	validatorErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []error{err}
	}
	for _, e := range validatorErrs {
		translatedErr := errors.New(e.Translate(trans))
		errs = append(errs, translatedErr)
	}
	return errs
}
