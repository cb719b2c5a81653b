package apitest

import "github.com/wolfman30/clinic-portal/internal/api"

// Fixture ids seeded by Seed.
const (
	ClinicNorth   api.ID = "c-north"
	ClinicSouth   api.ID = "c-south"
	DoctorAna     api.ID = "d-ana"
	DoctorBogdan  api.ID = "d-bogdan"
	DoctorCristi  api.ID = "d-cristi"
	PatientUserID api.ID = "u-patient"
	AnaUserID     api.ID = "u-ana"
	BogdanUserID  api.ID = "u-bogdan"
	NurseUserID   api.ID = "u-nurse"
)

// Tokens holds bearer tokens for the seeded accounts.
type Tokens struct {
	Patient string
	Ana     string
	Bogdan  string
	Nurse   string
}

// Seed loads two clinics, three doctors and accounts for a patient, two
// doctors and a nurse. Every password is "password123".
func (s *Server) Seed() Tokens {
	s.AddClinic(api.Clinic{ID: ClinicNorth, Name: "North Clinic", City: "Cluj"})
	s.AddClinic(api.Clinic{ID: ClinicSouth, Name: "South Clinic", City: "Bucharest"})
	s.AddDoctor(api.Doctor{ID: DoctorAna, UserID: AnaUserID, Name: "Dr. Ana Pop", Specialty: "Cardiology", ClinicID: ClinicNorth})
	s.AddDoctor(api.Doctor{ID: DoctorBogdan, UserID: BogdanUserID, Name: "Dr. Bogdan Ionescu", Specialty: "Dermatology", ClinicID: ClinicNorth})
	s.AddDoctor(api.Doctor{ID: DoctorCristi, Name: "Dr. Cristi Marin", Specialty: "Pediatrics", ClinicID: ClinicSouth})
	return Tokens{
		Patient: s.AddUser(api.User{ID: PatientUserID, Name: "Maria Patient", Email: "maria@example.com", Role: api.RolePatient}, "password123"),
		Ana:     s.AddUser(api.User{ID: AnaUserID, Name: "Ana Pop", Email: "ana@example.com", Role: api.RoleDoctor, DoctorID: DoctorAna}, "password123"),
		Bogdan:  s.AddUser(api.User{ID: BogdanUserID, Name: "Bogdan Ionescu", Email: "bogdan@example.com", Role: api.RoleDoctor, DoctorID: DoctorBogdan}, "password123"),
		Nurse:   s.AddUser(api.User{ID: NurseUserID, Name: "Nina Nurse", Email: "nina@example.com", Role: api.RoleNurse}, "password123"),
	}
}
