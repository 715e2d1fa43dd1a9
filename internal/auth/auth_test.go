package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	. "github.com/smartystreets/goconvey/convey"
)

func serve(a *Authenticator, req *http.Request) *httptest.ResponseRecorder {
	e := echo.New()
	e.Use(a.Middleware())
	e.GET("/whoami", func(c echo.Context) error {
		return c.String(http.StatusOK, UserID(c)+"|"+SessionID(c))
	})
	e.GET("/private", func(c echo.Context) error {
		return c.String(http.StatusOK, UserID(c))
	}, RequireUser)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticator(t *testing.T) {
	Convey("Given a secret-backed authenticator", t, func() {
		a := New("test-secret")

		Convey("When a valid token is sent", func() {
			token, err := a.Issue("u-42", time.Minute)
			So(err, ShouldBeNil)
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
			rec := serve(a, req)

			Convey("Then the subject is the user and the session", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldEqual, "u-42|user:u-42")
			})
		})

		Convey("When a token signed with another secret is sent", func() {
			token, _ := New("other").Issue("u-42", time.Minute)
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)

			Convey("Then the request is rejected", func() {
				So(serve(a, req).Code, ShouldEqual, http.StatusUnauthorized)
			})
		})

		Convey("When an expired token is sent", func() {
			token, _ := a.Issue("u-42", -time.Minute)
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)

			Convey("Then the request is rejected", func() {
				So(serve(a, req).Code, ShouldEqual, http.StatusUnauthorized)
			})
		})

		Convey("When the X-User-ID header is sent without a token", func() {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			req.Header.Set(HeaderUserID, "spoofed")

			Convey("Then it is ignored", func() {
				So(serve(a, req).Code, ShouldEqual, http.StatusUnauthorized)
			})
		})
	})

	Convey("Given a development authenticator", t, func() {
		a := New("")

		Convey("When the user header is present", func() {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			req.Header.Set(HeaderUserID, "dev-user")
			rec := serve(a, req)

			Convey("Then it is trusted", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldEqual, "dev-user")
			})
		})

		Convey("When only a session header is present", func() {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			req.Header.Set(HeaderSessionID, "tab-1")
			rec := serve(a, req)

			Convey("Then the request is anonymous with a session", func() {
				So(rec.Body.String(), ShouldEqual, "|session:tab-1")
			})
		})
	})
}
