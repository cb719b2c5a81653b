// Package apitest runs an in-memory clinic API for tests.
package apitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"

	"github.com/wolfman30/clinic-portal/internal/api"
)

const (
	sessionCookie = "clinic_session"
	signingSecret = "apitest-secret"
)

// Call is one request received by the fake server.
type Call struct {
	Method  string
	Path    string
	Query   string
	Body    []byte
	Headers http.Header
}

// Decode unmarshals the request body into v.
func (c Call) Decode(v any) error {
	return json.Unmarshal(c.Body, v)
}

type failure struct {
	status int
	detail string
}

type account struct {
	user     api.User
	password string
}

// Server is a chi-routed fake of the clinic API.
type Server struct {
	*httptest.Server

	mu            sync.Mutex
	accounts      map[string]*account // by email
	sessions      map[string]api.ID   // token -> user id
	clinics       []api.Clinic
	doctors       []api.Doctor
	slots         map[string][]api.Slot // doctorID|date
	availability  map[api.ID][]api.AvailabilityWindow
	appointments  []api.Appointment
	prescriptions []api.Prescription
	records       []api.MedicalRecord
	invitations   map[string]api.Invitation
	calls         []Call
	failures      map[string][]failure // "METHOD /path"
	holds         map[string]chan struct{}
	nextID        int
	// Now is the clock used for token expiry and stats.
	Now func() time.Time
}

// New starts a fake server that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		accounts:     make(map[string]*account),
		sessions:     make(map[string]api.ID),
		slots:        make(map[string][]api.Slot),
		availability: make(map[api.ID][]api.AvailabilityWindow),
		invitations:  make(map[string]api.Invitation),
		failures:     make(map[string][]failure),
		holds:        make(map[string]chan struct{}),
		nextID:       1000,
		Now:          time.Now,
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.record)
	r.Use(s.injectFailures)

	r.Post("/auth/login", s.login)
	r.Post("/auth/register", s.register)
	r.Post("/auth/forgot-password", s.noContent)
	r.Post("/auth/reset-password", s.resetPassword)
	r.Get("/invitations/token/{token}", s.getInvitation)
	r.Post("/invitations/accept", s.acceptInvitation)
	r.Post("/organizations/validate-cui", s.validateCUI)
	r.Post("/organizations/register", s.registerOrganization)

	r.Group(func(authed chi.Router) {
		authed.Use(s.authenticate)
		authed.Post("/auth/logout", s.logout)
		authed.Get("/auth/me", s.me)
		authed.Put("/auth/profile", s.updateProfile)
		authed.Get("/appointments", s.listAppointments)
		authed.Post("/appointments", s.createAppointment)
		authed.Put("/appointments/{id}", s.updateAppointment)
		authed.Post("/appointments/{id}/cancel", s.cancelAppointment)
		authed.Get("/clinics", s.listClinics)
		authed.Get("/clinics/{id}", s.getClinic)
		authed.Get("/clinics/{id}/stats", s.clinicStats)
		authed.Get("/doctors", s.listDoctors)
		authed.Put("/doctors/{id}", s.updateDoctor)
		authed.Get("/doctors/{id}/availability", s.doctorAvailability)
		authed.Put("/doctors/{id}/availability", s.setAvailability)
		authed.Get("/patients/{id}/history", s.patientHistory)
		authed.Post("/prescriptions", s.createPrescription)
		authed.Post("/medical-records", s.createRecord)
	})
	return r
}

// --- seeding and inspection -------------------------------------------------

// AddUser registers an account and returns a bearer token for it.
func (s *Server) AddUser(u api.User, password string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = s.newID()
	}
	s.accounts[strings.ToLower(u.Email)] = &account{user: u, password: password}
	return s.issueToken(u)
}

// AddClinic seeds a clinic.
func (s *Server) AddClinic(c api.Clinic) {
	s.mu.Lock()
	s.clinics = append(s.clinics, c)
	s.mu.Unlock()
}

// AddDoctor seeds a doctor.
func (s *Server) AddDoctor(d api.Doctor) {
	s.mu.Lock()
	s.doctors = append(s.doctors, d)
	s.mu.Unlock()
}

// SetSlots seeds the availability returned for doctor on date (YYYY-MM-DD).
func (s *Server) SetSlots(doctorID api.ID, date string, slots []api.Slot) {
	s.mu.Lock()
	s.slots[string(doctorID)+"|"+date] = slots
	s.mu.Unlock()
}

// AddAppointment seeds an appointment.
func (s *Server) AddAppointment(a api.Appointment) {
	s.mu.Lock()
	if a.ID == "" {
		a.ID = s.newID()
	}
	s.appointments = append(s.appointments, a)
	s.mu.Unlock()
}

// AddInvitation seeds an invitation.
func (s *Server) AddInvitation(inv api.Invitation) {
	s.mu.Lock()
	s.invitations[inv.Token] = inv
	s.mu.Unlock()
}

// Appointment returns the stored appointment with id.
func (s *Server) Appointment(id api.ID) (api.Appointment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.appointments {
		if a.ID == id {
			return a, true
		}
	}
	return api.Appointment{}, false
}

// Availability returns the weekly windows last stored for a doctor.
func (s *Server) Availability(doctorID api.ID) []api.AvailabilityWindow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.availability[doctorID]
}

// FailNext makes the next request matching method and path fail.
func (s *Server) FailNext(method, path string, status int, detail string) {
	s.mu.Lock()
	key := method + " " + path
	s.failures[key] = append(s.failures[key], failure{status: status, detail: detail})
	s.mu.Unlock()
}

// Hold blocks requests to method+path until the returned func is called.
func (s *Server) Hold(method, path string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.holds[method+" "+path] = ch
	s.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// Calls returns every request received so far.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallsTo returns the requests matching method and path.
func (s *Server) CallsTo(method, path string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Method == method && c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

// --- middleware ---------------------------------------------------------------

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body.Close()
		r.Body = io.NopCloser(strings.NewReader(string(body)))
		s.mu.Lock()
		s.calls = append(s.calls, Call{
			Method:  r.Method,
			Path:    r.URL.Path,
			Query:   r.URL.RawQuery,
			Body:    body,
			Headers: r.Header.Clone(),
		})
		hold := s.holds[r.Method+" "+r.URL.Path]
		s.mu.Unlock()
		if hold != nil {
			select {
			case <-hold:
			case <-r.Context().Done():
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		s.mu.Lock()
		queue := s.failures[key]
		var f *failure
		if len(queue) > 0 {
			f = &queue[0]
			s.failures[key] = queue[1:]
		}
		s.mu.Unlock()
		if f != nil {
			writeDetail(w, f.status, f.detail)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type ctxUser struct{}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" {
			if c, err := r.Cookie(sessionCookie); err == nil {
				token = c.Value
			}
		}
		s.mu.Lock()
		id, ok := s.sessions[token]
		var user api.User
		if ok {
			user, ok = s.userByIDLocked(id)
		}
		s.mu.Unlock()
		if !ok {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
	})
}

// --- handlers -------------------------------------------------------------------

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	acc, ok := s.accounts[strings.ToLower(req.Email)]
	if !ok || acc.password != req.Password {
		s.mu.Unlock()
		writeDetail(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	token := s.issueToken(acc.user)
	user := acc.user
	s.mu.Unlock()
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: token, Path: "/", HttpOnly: true})
	writeJSON(w, http.StatusOK, api.AuthResponse{User: user, AccessToken: token, TokenType: "bearer"})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	if _, exists := s.accounts[strings.ToLower(req.Email)]; exists {
		s.mu.Unlock()
		writeDetail(w, http.StatusBadRequest, "Email already registered")
		return
	}
	user := api.User{ID: s.newID(), Name: req.Name, Email: req.Email, Phone: req.Phone, Role: api.RolePatient}
	s.accounts[strings.ToLower(req.Email)] = &account{user: user, password: req.Password}
	token := s.issueToken(user)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, api.AuthResponse{User: user, AccessToken: token})
}

func (s *Server) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Token == "" {
		writeDetail(w, http.StatusBadRequest, "Invalid or expired reset token")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) noContent(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getInvitation(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	inv, ok := s.invitations[chi.URLParam(r, "token")]
	s.mu.Unlock()
	if !ok {
		writeDetail(w, http.StatusNotFound, "Invitation not found or expired")
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (s *Server) acceptInvitation(w http.ResponseWriter, r *http.Request) {
	var req api.AcceptInvitationRequest
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	inv, ok := s.invitations[req.Token]
	if !ok {
		s.mu.Unlock()
		writeDetail(w, http.StatusNotFound, "Invitation not found or expired")
		return
	}
	delete(s.invitations, req.Token)
	user := api.User{ID: s.newID(), Name: req.Name, Email: inv.Email, Role: inv.Role, Phone: req.Phone}
	s.accounts[strings.ToLower(inv.Email)] = &account{user: user, password: req.Password}
	token := s.issueToken(user)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, api.AuthResponse{User: user, AccessToken: token})
}

func (s *Server) validateCUI(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CUI string `json:"cui"`
	}
	if !decode(w, r, &req) {
		return
	}
	if _, err := strconv.Atoi(req.CUI); err != nil || len(req.CUI) < 2 || len(req.CUI) > 10 {
		writeJSON(w, http.StatusOK, api.CUIValidation{Valid: false, Message: "CUI is not valid"})
		return
	}
	writeJSON(w, http.StatusOK, api.CUIValidation{Valid: true, CompanyName: "Clinica " + req.CUI + " SRL"})
}

func (s *Server) registerOrganization(w http.ResponseWriter, r *http.Request) {
	var req api.OrganizationRegistration
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	id := s.newID()
	admin := api.User{ID: s.newID(), Name: req.AdminName, Email: req.AdminEmail, Role: api.RoleAdmin, OrganizationID: id}
	s.accounts[strings.ToLower(req.AdminEmail)] = &account{user: admin, password: req.AdminPassword}
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, api.Organization{ID: id, Name: req.Name, CUI: req.CUI})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if c, err := r.Cookie(sessionCookie); err == nil && token == "" {
		token = c.Value
	}
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userFrom(r.Context()))
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req api.ProfileUpdate
	if !decode(w, r, &req) {
		return
	}
	user := userFrom(r.Context())
	s.mu.Lock()
	acc := s.accounts[strings.ToLower(user.Email)]
	if req.Name != nil {
		acc.user.Name = *req.Name
	}
	if req.Phone != nil {
		acc.user.Phone = *req.Phone
	}
	if req.Address != nil {
		acc.user.Address = *req.Address
	}
	if req.DateOfBirth != nil {
		acc.user.DateOfBirth = *req.DateOfBirth
	}
	updated := acc.user
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) listAppointments(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	s.mu.Lock()
	out := make([]api.Appointment, 0, len(s.appointments))
	for _, a := range s.appointments {
		if user.Role.IsStaff() {
			own := a.DoctorUserID == user.ID
			a.IsOwnPatient = &own
		}
		out = append(out, a)
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createAppointment(w http.ResponseWriter, r *http.Request) {
	var req api.CreateAppointmentRequest
	if !decode(w, r, &req) {
		return
	}
	user := userFrom(r.Context())
	s.mu.Lock()
	doc, ok := s.doctorLocked(req.DoctorID)
	if !ok {
		s.mu.Unlock()
		writeDetail(w, http.StatusNotFound, "Doctor not found")
		return
	}
	for _, a := range s.appointments {
		if a.DoctorID == req.DoctorID && a.DateTime == req.DateTime && a.Status != api.StatusCancelled {
			s.mu.Unlock()
			writeDetail(w, http.StatusConflict, "This time slot is no longer available")
			return
		}
	}
	appt := api.Appointment{
		ID:              s.newID(),
		PatientID:       user.ID,
		PatientName:     user.Name,
		DoctorID:        doc.ID,
		DoctorName:      doc.Name,
		DoctorUserID:    doc.UserID,
		ClinicID:        req.ClinicID,
		DateTime:        req.DateTime,
		DurationMinutes: 30,
		Status:          api.StatusScheduled,
		Notes:           req.Notes,
	}
	s.appointments = append(s.appointments, appt)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, appt)
}

func (s *Server) updateAppointment(w http.ResponseWriter, r *http.Request) {
	var req api.UpdateAppointmentRequest
	if !decode(w, r, &req) {
		return
	}
	id := api.ID(chi.URLParam(r, "id"))
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.appointments {
		if s.appointments[i].ID != id {
			continue
		}
		if req.Status != nil {
			s.appointments[i].Status = *req.Status
		}
		if req.Notes != nil {
			s.appointments[i].Notes = *req.Notes
		}
		writeJSON(w, http.StatusOK, s.appointments[i])
		return
	}
	writeDetail(w, http.StatusNotFound, "Appointment not found")
}

func (s *Server) cancelAppointment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if !decode(w, r, &req) {
		return
	}
	id := api.ID(chi.URLParam(r, "id"))
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.appointments {
		if s.appointments[i].ID != id {
			continue
		}
		if s.appointments[i].Status == api.StatusCancelled || s.appointments[i].Status == api.StatusCompleted {
			writeDetail(w, http.StatusBadRequest, "Appointment cannot be cancelled")
			return
		}
		s.appointments[i].Status = api.StatusCancelled
		s.appointments[i].CancellationReason = req.Reason
		writeJSON(w, http.StatusOK, map[string]string{"message": "Appointment cancelled"})
		return
	}
	writeDetail(w, http.StatusNotFound, "Appointment not found")
}

func (s *Server) listClinics(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := append([]api.Clinic(nil), s.clinics...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getClinic(w http.ResponseWriter, r *http.Request) {
	id := api.ID(chi.URLParam(r, "id"))
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.clinics {
		if c.ID == id {
			writeJSON(w, http.StatusOK, c)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Clinic not found")
}

func (s *Server) clinicStats(w http.ResponseWriter, r *http.Request) {
	id := api.ID(chi.URLParam(r, "id"))
	today := s.Now().Format(api.DateLayout)
	s.mu.Lock()
	defer s.mu.Unlock()
	var st api.ClinicStats
	patients := make(map[api.ID]struct{})
	for _, a := range s.appointments {
		if a.ClinicID != id {
			continue
		}
		st.TotalAppointments++
		patients[a.PatientID] = struct{}{}
		switch a.Status {
		case api.StatusScheduled:
			st.Scheduled++
		case api.StatusConfirmed:
			st.Confirmed++
		case api.StatusCompleted:
			st.Completed++
		case api.StatusCancelled:
			st.Cancelled++
		}
		if strings.HasPrefix(a.DateTime, today) {
			st.TodayAppointments++
		}
	}
	for _, d := range s.doctors {
		if d.ClinicID == id {
			st.Doctors++
		}
	}
	st.Patients = len(patients)
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) listDoctors(w http.ResponseWriter, r *http.Request) {
	clinicID := api.ID(r.URL.Query().Get("clinic_id"))
	s.mu.Lock()
	out := make([]api.Doctor, 0, len(s.doctors))
	for _, d := range s.doctors {
		if clinicID == "" || d.ClinicID == clinicID {
			out = append(out, d)
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) updateDoctor(w http.ResponseWriter, r *http.Request) {
	var req api.DoctorUpdate
	if !decode(w, r, &req) {
		return
	}
	id := api.ID(chi.URLParam(r, "id"))
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.doctors {
		if s.doctors[i].ID != id {
			continue
		}
		if req.Specialty != nil {
			s.doctors[i].Specialty = *req.Specialty
		}
		if req.Phone != nil {
			s.doctors[i].Phone = *req.Phone
		}
		if req.Bio != nil {
			s.doctors[i].Bio = *req.Bio
		}
		writeJSON(w, http.StatusOK, s.doctors[i])
		return
	}
	writeDetail(w, http.StatusNotFound, "Doctor not found")
}

func (s *Server) doctorAvailability(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "id") + "|" + r.URL.Query().Get("date")
	s.mu.Lock()
	slots := append([]api.Slot{}, s.slots[key]...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"slots": slots})
}

func (s *Server) setAvailability(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Availability []api.AvailabilityWindow `json:"availability"`
	}
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	s.availability[api.ID(chi.URLParam(r, "id"))] = req.Availability
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) patientHistory(w http.ResponseWriter, r *http.Request) {
	id := api.ID(chi.URLParam(r, "id"))
	s.mu.Lock()
	defer s.mu.Unlock()
	var h api.PatientHistory
	ids := make(map[api.ID]struct{})
	for _, a := range s.appointments {
		if a.PatientID == id {
			h.Appointments = append(h.Appointments, a)
			ids[a.ID] = struct{}{}
		}
	}
	for _, p := range s.prescriptions {
		if _, ok := ids[p.AppointmentID]; ok {
			h.Prescriptions = append(h.Prescriptions, p)
		}
	}
	for _, rec := range s.records {
		if _, ok := ids[rec.AppointmentID]; ok {
			h.MedicalRecords = append(h.MedicalRecords, rec)
		}
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) createPrescription(w http.ResponseWriter, r *http.Request) {
	var req api.PrescriptionRequest
	if !decode(w, r, &req) {
		return
	}
	if userFrom(r.Context()).Role != api.RoleDoctor {
		writeDetail(w, http.StatusForbidden, "Only doctors can issue prescriptions")
		return
	}
	s.mu.Lock()
	p := api.Prescription{ID: s.newID(), AppointmentID: req.AppointmentID, Medications: req.Medications, Notes: req.Notes}
	s.prescriptions = append(s.prescriptions, p)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) createRecord(w http.ResponseWriter, r *http.Request) {
	var req api.MedicalRecordRequest
	if !decode(w, r, &req) {
		return
	}
	if userFrom(r.Context()).Role != api.RoleDoctor {
		writeDetail(w, http.StatusForbidden, "Only doctors can write medical records")
		return
	}
	s.mu.Lock()
	rec := api.MedicalRecord{ID: s.newID(), AppointmentID: req.AppointmentID, RecordType: req.RecordType, Title: req.Title, Content: req.Content}
	s.records = append(s.records, rec)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, rec)
}

// --- helpers --------------------------------------------------------------------

func (s *Server) newID() api.ID {
	s.nextID++
	return api.ID(strconv.Itoa(s.nextID))
}

// issueToken signs a session JWT and registers it. Caller holds s.mu.
func (s *Server) issueToken(u api.User) string {
	now := s.Now()
	claims := jwt.MapClaims{
		"sub":  u.ID.String(),
		"role": string(u.Role),
		"iat":  now.Unix(),
		"exp":  now.Add(time.Hour).Unix(),
		"jti":  fmt.Sprintf("%d", s.nextID),
	}
	s.nextID++
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingSecret))
	if err != nil {
		panic(fmt.Sprintf("apitest: sign token: %v", err))
	}
	s.sessions[token] = u.ID
	return token
}

func (s *Server) userByIDLocked(id api.ID) (api.User, bool) {
	for _, acc := range s.accounts {
		if acc.user.ID == id {
			return acc.user, true
		}
	}
	return api.User{}, false
}

func (s *Server) doctorLocked(id api.ID) (api.Doctor, bool) {
	for _, d := range s.doctors {
		if d.ID == id {
			return d, true
		}
	}
	return api.Doctor{}, false
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	if detail == "" {
		w.WriteHeader(status)
		return
	}
	writeJSON(w, status, map[string]string{"detail": detail})
}
