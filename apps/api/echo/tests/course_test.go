package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	echoapi "github.com/dusabe/tathmini/apps/api/echo"
	"github.com/dusabe/tathmini/core/course"
	"github.com/dusabe/tathmini/core/identity"
	testutil "github.com/dusabe/tathmini/tests"
)

func Test_courseApi_create(t *testing.T) {
	db.Reset()

	teacher := testutil.CreateIdentity(t, idtRepo, "0xteach", "Teach", identity.RoleTeacher, "")
	student := testutil.CreateIdentity(t, idtRepo, "0xstud", "Stud", identity.RoleStudent, "")

	now := time.Now().UTC()
	payload := func(name string, start, end time.Time) []byte {
		return marchallObj(t, course.NewCourse{Name: name, StartTime: start, EndTime: end})
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Teacher required", token: getToken(t, student), body: payload("Algebra", now, now.Add(time.Hour)),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Required fields", token: getToken(t, teacher), body: marchallObj(t, map[string]string{}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"name":       "name is a required field",
				"start_time": "start_time is a required field",
				"end_time":   "end_time is a required field",
			}),
		},
		{
			name: "Window start must precede end", token: getToken(t, teacher),
			body: payload("Algebra", now.Add(time.Hour), now), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "course window start must precede end"}),
		},
		{name: "Created with ID 0", token: getToken(t, teacher), body: payload("Algebra", now, now.Add(time.Hour)), wantCode: http.StatusCreated},
		{name: "Created with ID 1", token: getToken(t, teacher), body: payload("Geometry", now, now.Add(time.Hour)), wantCode: http.StatusCreated},
	}
	wantID := 0
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/api/courses"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusCreated {
				var crs course.Course
				if err := json.Unmarshal(rec.Body.Bytes(), &crs); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				if crs.ID != wantID {
					t.Errorf("failed! ID = %v; want %v", crs.ID, wantID)
				}
				if crs.Teacher != teacher.Address || !crs.Active || crs.StudentCount != 0 {
					t.Errorf("unexpected course: %+v", crs)
				}
				wantID++
			}
		})
	}
}

func Test_courseApi_update(t *testing.T) {
	db.Reset()

	owner := testutil.CreateIdentity(t, idtRepo, "0xowner", "Owner", identity.RoleTeacher, "")
	other := testutil.CreateIdentity(t, idtRepo, "0xother", "Other", identity.RoleTeacher, "")

	now := time.Now().UTC()
	crs := testutil.CreateCourse(t, crsRepo, owner.Address, "Algebra", now, now.Add(time.Hour))

	payload := marchallObj(t, course.UpdateCourse{Name: "Algebra II", StartTime: crs.StartTime, EndTime: crs.EndTime, Active: true})

	tests := []httpTest{
		{
			name: "Unknown course", path: "/api/courses/99", token: getToken(t, owner), body: payload,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "course not found"}),
		},
		{
			name: "Only the owner may update", path: "/api/courses/0", token: getToken(t, other), body: payload,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "caller role does not permit this operation"}),
		},
		{
			name: "Inverted window leaves the course unchanged", path: "/api/courses/0", token: getToken(t, owner),
			body:     marchallObj(t, course.UpdateCourse{Name: "Broken", StartTime: crs.EndTime, EndTime: crs.StartTime, Active: true}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "course window start must precede end"}),
			extra:    "verify-unchanged",
		},
		{name: "Updated", path: "/api/courses/0", token: getToken(t, owner), body: payload, wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPut

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.extra == "verify-unchanged" {
				got, err := crsRepo.GetCourse(context.Background(), crs.ID)
				if err != nil {
					t.Fatalf("GetCourse() failed! err %v", err)
				}
				if got.Name != "Algebra" || !got.EndTime.After(got.StartTime) {
					t.Errorf("course changed by rejected update: %+v", got)
				}
			}
			if tt.wantCode == http.StatusOK {
				var got course.Course
				if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				if got.Name != "Algebra II" || got.Teacher != owner.Address {
					t.Errorf("unexpected course: %+v", got)
				}
			}
		})
	}
}

func Test_courseApi_join(t *testing.T) {
	db.Reset()

	teacher := testutil.CreateIdentity(t, idtRepo, "0xteach", "Teach", identity.RoleTeacher, "")
	alice := testutil.CreateIdentity(t, idtRepo, "0xalice", "Alice", identity.RoleStudent, "")

	now := time.Now().UTC()
	testutil.CreateCourse(t, crsRepo, teacher.Address, "Algebra", now, now.Add(time.Hour))

	enrolled := marchallObj(t, echoapi.SuccessResponse{Success: "Enrolled."})

	tests := []httpTest{
		{name: "Auth required", path: "/api/courses/0/join", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Student required", path: "/api/courses/0/join", token: getToken(t, teacher),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Unknown course", path: "/api/courses/99/join", token: getToken(t, alice),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "course not found"}),
		},
		{name: "Joined", path: "/api/courses/0/join", token: getToken(t, alice), wantCode: http.StatusOK, wantData: enrolled},
		{name: "Joining again is a no-op", path: "/api/courses/0/join", token: getToken(t, alice), wantCode: http.StatusOK, wantData: enrolled},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// joined exactly once
	req, rec := newAuthRequest(http.MethodGet, "/api/courses/0", getToken(t, alice))
	app.ServeHTTP(rec, req)
	var got course.Course
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if got.StudentCount != 1 {
		t.Errorf("failed! StudentCount = %v; want 1", got.StudentCount)
	}

	req, rec = newAuthRequest(http.MethodGet, "/api/courses/0/students", getToken(t, teacher))
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, alice.Address)}, rec)
}

func Test_courseApi_query(t *testing.T) {
	db.Reset()

	teacher := testutil.CreateIdentity(t, idtRepo, "0xteach", "Teach", identity.RoleTeacher, "")
	alice := testutil.CreateIdentity(t, idtRepo, "0xalice", "Alice", identity.RoleStudent, "")

	now := time.Now().UTC()
	open := testutil.CreateCourse(t, crsRepo, teacher.Address, "Algebra", now, now.Add(time.Hour))
	closed := testutil.CreateCourse(t, crsRepo, teacher.Address, "Geometry", now, now.Add(time.Hour))

	upd := closed
	upd.Active = false
	if _, err := crsRepo.UpdateCourse(context.Background(), teacher.Address, upd); err != nil {
		t.Fatalf("UpdateCourse() failed: %v", err)
	}
	closed.Active = false

	token := getToken(t, alice)

	tests := []httpTest{
		{name: "All courses", path: "/api/courses", token: token, wantCode: http.StatusOK, wantData: marchallList(t, open, closed)},
		{name: "Active only", path: "/api/courses?active=true", token: token, wantCode: http.StatusOK, wantData: marchallList(t, open)},
		{name: "Retrieve", path: "/api/courses/0", token: token, wantCode: http.StatusOK, wantData: marchallObj(t, open)},
		{
			name: "Unparsable ID reads as missing", path: "/api/courses/lol", token: token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
