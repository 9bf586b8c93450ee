package xrest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
)

var errEmptyBody = errors.New("empty or null body")

// GetJSON 发送 GET 请求并把响应体解码为 T。
func GetJSON[T any](ctx context.Context, d Doer, service, path string, opts ...RequestOption) (T, error) {
	return doJSON[T](ctx, d, newRequest(service, http.MethodGet, path, nil, opts))
}

// PostJSON 发送 POST 请求并把响应体解码为 T。
func PostJSON[T any](ctx context.Context, d Doer, service, path string, body any, opts ...RequestOption) (T, error) {
	return doJSON[T](ctx, d, newRequest(service, http.MethodPost, path, body, opts))
}

// PutJSON 发送 PUT 请求并把响应体解码为 T。
func PutJSON[T any](ctx context.Context, d Doer, service, path string, body any, opts ...RequestOption) (T, error) {
	return doJSON[T](ctx, d, newRequest(service, http.MethodPut, path, body, opts))
}

// DeleteJSON 发送 DELETE 请求并把响应体解码为 T。
func DeleteJSON[T any](ctx context.Context, d Doer, service, path string, opts ...RequestOption) (T, error) {
	return doJSON[T](ctx, d, newRequest(service, http.MethodDelete, path, nil, opts))
}

func doJSON[T any](ctx context.Context, d Doer, req *Request) (T, error) {
	var zero T
	if d == nil {
		return zero, ErrNilClient
	}
	resp, err := d.Do(ctx, req)
	if err != nil {
		return zero, err
	}
	return Decode[T](resp, req.Service, req.Path)
}

// Decode 把响应体解码为 T。
//
// 空响应体或 null：T 可为 nil（指针、map、切片、接口）时返回零值，否则返回 *DecodeError。
func Decode[T any](resp *Response, service, path string) (T, error) {
	var v T
	typ := reflect.TypeFor[T]()

	var body []byte
	if resp != nil {
		body = bytes.TrimSpace(resp.Body)
	}
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		if nilable(typ) {
			return v, nil
		}
		return v, &DecodeError{Service: service, Path: path, Type: typ.String(), Err: errEmptyBody}
	}

	if err := json.Unmarshal(body, &v); err != nil {
		var zero T
		return zero, &DecodeError{Service: service, Path: path, Type: typ.String(), Err: err}
	}
	return v, nil
}

func nilable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return true
	default:
		return false
	}
}
