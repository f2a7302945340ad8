package account

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"matchbook.org/internal/auth"
)

const (
	minPasswordBytes = 6
	dobLayout        = "2006-01-02"
)

// RegisterRequest is the flat registration payload.
type RegisterRequest struct {
	FirstName     string   `json:"firstName"`
	MiddleName    string   `json:"middleName"`
	LastName      string   `json:"lastName"`
	Gender        string   `json:"gender"`
	DOB           string   `json:"dob"`
	BloodGroup    string   `json:"bloodGroup"`
	Height        float64  `json:"height"`
	Weight        float64  `json:"weight"`
	Complexion    string   `json:"complexion"`
	Hobbies       []string `json:"hobbies"`
	AboutMe       string   `json:"aboutMe"`
	ProfileImages []string `json:"profileImages"`

	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email"`

	HighestEducation   string `json:"highestEducation"`
	OtherEducationInfo string `json:"otherEductionDetail"`
	JobType            string `json:"jobType"`
	Designation        string `json:"designation"`
	WorkDetail         string `json:"workDetail"`
	Income             string `json:"income"`

	Religion string `json:"religion"`
	Caste    string `json:"caste"`
	SubCaste string `json:"subCaste"`
	Gotra    string `json:"gotra"`
	Raasi    string `json:"raasi"`

	FatherName       string `json:"fatherName"`
	FatherOccupation string `json:"fatherOccupation"`
	MotherName       string `json:"motherName"`
	MotherOccupation string `json:"motherOccupation"`
	NoOfSiblings     int    `json:"noOfSiblings"`
	NoOfBrothers     int    `json:"noOfBrothers"`
	NoOfSisters      int    `json:"noOfSisters"`
	FamilyType       string `json:"familyType"`

	SpouseExpectation json.RawMessage `json:"spouseExpctation"`
	ResidentialAddr   *Address        `json:"residentialAddr"`
	PermanentAddr     *Address        `json:"permanentAddr"`
	CreatedBy         string          `json:"createdBy"`
	Tags              []string        `json:"tags"`

	Password string `json:"password"`
}

// Normalize trims free-text identity fields and canonicalizes the email.
func (r *RegisterRequest) Normalize() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.MiddleName = strings.TrimSpace(r.MiddleName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.DOB = strings.TrimSpace(r.DOB)
	r.PhoneNumber = strings.TrimSpace(r.PhoneNumber)
	r.Email = NormalizeEmail(r.Email)
	r.Tags = compact(r.Tags)
	r.Hobbies = compact(r.Hobbies)
	r.ProfileImages = compact(r.ProfileImages)
	if raw := bytes.TrimSpace(r.SpouseExpectation); len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		r.SpouseExpectation = nil
	}
}

// Validate checks required fields and basic shape. Errors wrap ErrInvalidInput.
func (r *RegisterRequest) Validate() error {
	switch {
	case r.FirstName == "":
		return invalid("firstName is required")
	case r.LastName == "":
		return invalid("lastName is required")
	case r.Email == "":
		return invalid("email is required")
	case r.Password == "":
		return invalid("password is required")
	}
	if addr, err := mail.ParseAddress(r.Email); err != nil || addr.Address != r.Email {
		return invalid("email is not a valid address")
	}
	if len(r.Password) < minPasswordBytes {
		return invalid(fmt.Sprintf("password must be at least %d characters", minPasswordBytes))
	}
	if len(r.Password) > auth.MaxPasswordBytes {
		return invalid(fmt.Sprintf("password must be at most %d bytes", auth.MaxPasswordBytes))
	}
	if r.DOB != "" {
		if _, err := time.Parse(dobLayout, r.DOB); err != nil {
			return invalid("dob must be formatted as YYYY-MM-DD")
		}
	}
	if r.Height < 0 || r.Weight < 0 {
		return invalid("height and weight must not be negative")
	}
	if r.NoOfSiblings < 0 || r.NoOfBrothers < 0 || r.NoOfSisters < 0 {
		return invalid("sibling counts must not be negative")
	}
	if r.NoOfSiblings > 0 && r.NoOfBrothers+r.NoOfSisters > r.NoOfSiblings {
		return invalid("noOfBrothers + noOfSisters exceeds noOfSiblings")
	}
	if raw := bytes.TrimSpace(r.SpouseExpectation); len(raw) > 0 && raw[0] != '{' {
		return invalid("spouseExpctation must be an object")
	}
	return nil
}

// Profile builds the record to persist. The password is not carried over.
func (r *RegisterRequest) Profile() *Profile {
	return &Profile{
		CreatedBy: r.CreatedBy,
		PersonalInfo: PersonalInfo{
			FirstName:     r.FirstName,
			MiddleName:    r.MiddleName,
			LastName:      r.LastName,
			Gender:        r.Gender,
			DOB:           r.DOB,
			BloodGroup:    r.BloodGroup,
			Height:        r.Height,
			Weight:        r.Weight,
			Complexion:    r.Complexion,
			Hobbies:       r.Hobbies,
			AboutMe:       r.AboutMe,
			ProfileImages: r.ProfileImages,
		},
		ContactInfo: ContactInfo{
			PhoneNumber: r.PhoneNumber,
			Email:       r.Email,
		},
		ResidentialAddr: r.ResidentialAddr,
		PermanentAddr:   r.PermanentAddr,
		EduAndProfInfo: EducationInfo{
			HighestEducation:   r.HighestEducation,
			OtherEducationInfo: r.OtherEducationInfo,
			JobType:            r.JobType,
			Designation:        r.Designation,
			WorkDetail:         r.WorkDetail,
			Income:             r.Income,
		},
		CultureAndReligiousInfo: ReligiousInfo{
			Religion: r.Religion,
			Caste:    r.Caste,
			SubCaste: r.SubCaste,
			Gotra:    r.Gotra,
			Raasi:    r.Raasi,
		},
		FamilyInfo: FamilyInfo{
			FatherName:       r.FatherName,
			FatherOccupation: r.FatherOccupation,
			MotherName:       r.MotherName,
			MotherOccupation: r.MotherOccupation,
			NoOfSiblings:     r.NoOfSiblings,
			NoOfBrothers:     r.NoOfBrothers,
			NoOfSisters:      r.NoOfSisters,
			FamilyType:       r.FamilyType,
		},
		SpouseExpectation: r.SpouseExpectation,
		Tags:              r.Tags,
	}
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}

func compact(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := values[:0:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
