package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/growshop/growcart/internal/domain/cart"
)

// writeSuccess responds with {"success":true,...payload fields...}.
func writeSuccess(w http.ResponseWriter, status int, payload func(e *jx.Encoder)) {
	e := &jx.Encoder{}
	e.Obj(func(e *jx.Encoder) {
		e.Field("success", func(e *jx.Encoder) { e.Bool(true) })
		if payload != nil {
			payload(e)
		}
	})
	writeRaw(w, status, e.Bytes())
}

// writeError maps an engine error to its HTTP status and responds with
// {"success":false,"error":<code>,"message":<detail>}.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := cart.ErrorCode(err)
	status := statusFor(code)
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("cart operation failed", zap.Error(err))
	}

	e := &jx.Encoder{}
	e.Obj(func(e *jx.Encoder) {
		e.Field("success", func(e *jx.Encoder) { e.Bool(false) })
		e.Field("error", func(e *jx.Encoder) {
			if code == "" {
				e.Str("Internal")
				return
			}
			e.Str(string(code))
		})
		e.Field("message", func(e *jx.Encoder) { e.Str(err.Error()) })
	})
	writeRaw(w, status, e.Bytes())
}

// writeBadRequest reports an undecodable request body.
func writeBadRequest(w http.ResponseWriter, reason string) {
	e := &jx.Encoder{}
	e.Obj(func(e *jx.Encoder) {
		e.Field("success", func(e *jx.Encoder) { e.Bool(false) })
		e.Field("error", func(e *jx.Encoder) { e.Str("BadRequest") })
		e.Field("message", func(e *jx.Encoder) { e.Str(reason) })
	})
	writeRaw(w, http.StatusBadRequest, e.Bytes())
}

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func statusFor(code cart.Code) int {
	switch code {
	case cart.CodeItemNotFound:
		return http.StatusNotFound
	case cart.CodeCartFull:
		return http.StatusConflict
	case cart.CodeInvalidProduct, cart.CodeQuantityOutOfRange, cart.CodeInvalidCoupon:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// asUnknownCoupon rewraps a registry miss as the engine's invalid coupon
// error so the response carries the InvalidCoupon code.
func asUnknownCoupon(err error, code string) error {
	return errors.Wrapf(cart.ErrInvalidCoupon, "code %q: %v", code, err)
}
