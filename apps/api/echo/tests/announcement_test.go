package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/dusabe/tathmini/core/announcement"
	"github.com/dusabe/tathmini/core/identity"
	testutil "github.com/dusabe/tathmini/tests"
)

func Test_announcementApi(t *testing.T) {
	db.Reset()

	alice := testutil.CreateIdentity(t, idtRepo, "0xalice", "Alice", identity.RoleStudent, "")
	admin := testutil.CreateIdentity(t, idtRepo, "0xadmin", "Admin", identity.RoleAdmin, "")

	payload := func(title string) []byte {
		return marchallObj(t, announcement.NewAnnouncement{Title: title, Content: "Lorem ipsum."})
	}

	tests := []httpTest{
		{name: "Auth required", method: http.MethodPost, body: payload("One"), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", method: http.MethodPost, token: getToken(t, alice), body: payload("One"),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Required fields", method: http.MethodPost, token: getToken(t, admin), body: marchallObj(t, map[string]string{}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"title":   "title is a required field",
				"content": "content is a required field",
			}),
		},
		{name: "Created: One", method: http.MethodPost, token: getToken(t, admin), body: payload("One"), wantCode: http.StatusCreated},
		{name: "Created: Two", method: http.MethodPost, token: getToken(t, admin), body: payload("Two"), wantCode: http.StatusCreated},
		{name: "Anyone authed may list", method: http.MethodGet, token: getToken(t, alice), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.path = "/api/announcements"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.method == http.MethodGet && tt.wantCode == http.StatusOK {
				var anns []announcement.Announcement
				if err := json.Unmarshal(rec.Body.Bytes(), &anns); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				if len(anns) != 2 || anns[0].Title != "Two" || anns[1].Title != "One" {
					t.Errorf("failed! announcements = %+v; want newest first", anns)
				}
			}
		})
	}
}
