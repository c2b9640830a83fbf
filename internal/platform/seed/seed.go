// Package seed loads a small demo dataset so a fresh install has
// accounts to log into and data on every dashboard.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/amma-health/portal/internal/domain/appointment"
	"github.com/amma-health/portal/internal/domain/doctor"
	"github.com/amma-health/portal/internal/domain/identity"
	"github.com/amma-health/portal/internal/domain/link"
	"github.com/amma-health/portal/internal/domain/patient"
)

// DemoPassword is the password every demo account gets.
const DemoPassword = "demo1234"

// Services collects everything the seeder writes into.
type Services struct {
	Users        *identity.Registry
	Links        *link.Registry
	Appointments *appointment.Service
	Patients     *patient.Service
	Doctors      *doctor.Service
}

// Demo wipes current state and loads the demo dataset. It is meant
// for development and first-run environments only.
func Demo(ctx context.Context, s Services, logger zerolog.Logger) error {
	log := logger.With().Str("component", "seed").Logger()

	s.Users.Reset(ctx)
	s.Links.Reset(ctx)
	s.Appointments.Reset(ctx)
	s.Patients.Reset(ctx)
	s.Doctors.Reset(ctx)

	pat, _, err := s.Users.Register(ctx, identity.RegisterInput{
		Email: "priya@demo.amma.health", Password: DemoPassword,
		Name: "Priya Sharma", Role: identity.RolePatient, Phone: "+91-98-0000-1111",
	})
	if err != nil {
		return fmt.Errorf("seed patient account: %w", err)
	}

	doc1, _, err := s.Users.Register(ctx, identity.RegisterInput{
		Email: "anand@demo.amma.health", Password: DemoPassword,
		Name: "Dr. Anand Krishnan", Role: identity.RoleDoctor, Specialty: "Cardiology",
	})
	if err != nil {
		return fmt.Errorf("seed doctor account: %w", err)
	}
	doc2, _, err := s.Users.Register(ctx, identity.RegisterInput{
		Email: "meera@demo.amma.health", Password: DemoPassword,
		Name: "Dr. Meera Rao", Role: identity.RoleDoctor, Specialty: "Pediatrics",
	})
	if err != nil {
		return fmt.Errorf("seed doctor account: %w", err)
	}
	if _, _, err := s.Users.Register(ctx, identity.RegisterInput{
		Email: "ravi@demo.amma.health", Password: DemoPassword,
		Name: "Ravi Menon", Role: identity.RoleResearcher,
	}); err != nil {
		return fmt.Errorf("seed researcher account: %w", err)
	}
	if _, _, err := s.Users.Register(ctx, identity.RegisterInput{
		Email: "admin@demo.amma.health", Password: DemoPassword,
		Name: "Platform Admin", Role: identity.RoleAdmin,
	}); err != nil {
		return fmt.Errorf("seed admin account: %w", err)
	}

	s.Patients.UpsertProfile(ctx, patient.Profile{
		PatientID:         pat.ID,
		FirstName:         "Priya",
		LastName:          "Sharma",
		Gender:            "female",
		BloodGroup:        "B+",
		ChronicConditions: []string{"hypothyroidism"},
	})
	asha := s.Patients.AddFamilyMember(ctx, pat.ID, patient.FamilyMember{
		FirstName: "Asha", LastName: "Sharma", Relationship: "daughter", Gender: "female",
	})
	s.Patients.AddMedicalRecord(ctx, pat.ID, patient.MedicalRecord{
		Title: "Annual blood panel", DocumentType: "lab_report", UploadedBy: pat.ID,
		LabResults: []patient.LabResult{
			{TestName: "TSH", Value: "6.1", Unit: "mIU/L", ReferenceRange: "0.4-4.0", IsAbnormal: true},
		},
	})
	s.Patients.AddMedicalRecord(ctx, pat.ID, patient.MedicalRecord{
		Title: "Vaccination card", DocumentType: "immunization", UploadedBy: pat.ID,
		FamilyMemberID: asha.ID,
	})
	s.Patients.AddTrustedDoctor(ctx, pat.ID, patient.TrustedDoctor{
		Name: "Dr. Anand Krishnan", Specialty: "Cardiology", DoctorID: doc1.ID,
	})

	s.Doctors.UpsertProfile(ctx, doctor.Profile{
		DoctorID: doc1.ID, FirstName: "Anand", LastName: "Krishnan",
		Specialty: "Cardiology", ClinicName: "AMMA Heart Centre",
		YearsOfExperience: 14, IsVerified: true, VerificationStatus: "approved",
		Availability: []doctor.AvailabilitySlot{
			{DayOfWeek: 1, StartTime: "09:00", EndTime: "13:00", IsAvailable: true},
			{DayOfWeek: 4, StartTime: "14:00", EndTime: "18:00", IsAvailable: true},
		},
	})
	s.Doctors.UpsertProfile(ctx, doctor.Profile{
		DoctorID: doc2.ID, FirstName: "Meera", LastName: "Rao",
		Specialty: "Pediatrics", ClinicName: "AMMA Children's Clinic",
		YearsOfExperience: 9, IsVerified: true, VerificationStatus: "approved",
	})

	// An accepted link for the first doctor, a pending request for
	// the second, so both sides of the lifecycle show up in the UI.
	s.Links.CreateLinkRequest(ctx, pat.ID, doc1.ID, pat.Name, doc1.Name)
	s.Links.AcceptLink(ctx, link.LinkID(pat.ID, doc1.ID))
	s.Links.CreateLinkRequest(ctx, pat.ID, doc2.ID, pat.Name, doc2.Name)

	tomorrow := time.Now().Add(24 * time.Hour).Truncate(time.Hour)
	if _, err := s.Appointments.Book(ctx, appointment.Appointment{
		DoctorID: doc1.ID, PatientID: pat.ID,
		ScheduledAt: tomorrow, Type: appointment.TypeInPerson,
		Reason: "Follow-up on thyroid panel",
	}); err != nil {
		return fmt.Errorf("seed appointment: %w", err)
	}
	if _, err := s.Appointments.Book(ctx, appointment.Appointment{
		DoctorID: doc2.ID, PatientID: pat.ID, FamilyMemberID: asha.ID,
		ScheduledAt: tomorrow.Add(48 * time.Hour), Type: appointment.TypeVideo,
		Reason: "Vaccination schedule review",
	}); err != nil {
		return fmt.Errorf("seed appointment: %w", err)
	}

	log.Info().
		Str("patient", pat.Email).
		Str("doctor", doc1.Email).
		Msg("demo dataset loaded")
	return nil
}
