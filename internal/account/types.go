package account

import (
	"encoding/json"
	"slices"
	"strings"
	"time"
)

// PersonalInfo holds the member's personal details.
type PersonalInfo struct {
	FirstName     string   `json:"firstName"`
	MiddleName    string   `json:"middleName,omitempty"`
	LastName      string   `json:"lastName"`
	Gender        string   `json:"gender,omitempty"`
	DOB           string   `json:"dob,omitempty"`
	BloodGroup    string   `json:"bloodGroup,omitempty"`
	Height        float64  `json:"height,omitempty"`
	Weight        float64  `json:"weight,omitempty"`
	Complexion    string   `json:"complexion,omitempty"`
	Hobbies       []string `json:"hobbies,omitempty"`
	AboutMe       string   `json:"aboutMe,omitempty"`
	ProfileImages []string `json:"profileImages,omitempty"`
}

// ContactInfo holds how the member can be reached. Email is the login identity.
type ContactInfo struct {
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Email       string `json:"email"`
}

// Address is a postal address.
type Address struct {
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	Country    string `json:"country,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
}

// EducationInfo covers education and profession.
type EducationInfo struct {
	HighestEducation   string `json:"highestEducation,omitempty"`
	OtherEducationInfo string `json:"otherEductionDetail,omitempty"`
	JobType            string `json:"jobType,omitempty"`
	Designation        string `json:"designation,omitempty"`
	WorkDetail         string `json:"workDetail,omitempty"`
	Income             string `json:"income,omitempty"`
}

// ReligiousInfo covers culture and religion.
type ReligiousInfo struct {
	Religion string `json:"religion,omitempty"`
	Caste    string `json:"caste,omitempty"`
	SubCaste string `json:"subCaste,omitempty"`
	Gotra    string `json:"gotra,omitempty"`
	Raasi    string `json:"raasi,omitempty"`
}

// FamilyInfo describes the member's family.
type FamilyInfo struct {
	FatherName       string `json:"fatherName,omitempty"`
	FatherOccupation string `json:"fatherOccupation,omitempty"`
	MotherName       string `json:"motherName,omitempty"`
	MotherOccupation string `json:"motherOccupation,omitempty"`
	NoOfSiblings     int    `json:"noOfSiblings,omitempty"`
	NoOfBrothers     int    `json:"noOfBrothers,omitempty"`
	NoOfSisters      int    `json:"noOfSisters,omitempty"`
	FamilyType       string `json:"familyType,omitempty"`
}

// Profile is the stored user record. PasswordHash never leaves the process
// through JSON.
type Profile struct {
	ID                      string          `json:"id"`
	CreatedBy               string          `json:"createdBy,omitempty"`
	PersonalInfo            PersonalInfo    `json:"personalInfo"`
	ContactInfo             ContactInfo     `json:"contactInfo"`
	ResidentialAddr         *Address        `json:"residentialAddr,omitempty"`
	PermanentAddr           *Address        `json:"permanentAddr,omitempty"`
	EduAndProfInfo          EducationInfo   `json:"eduAndProfInfo"`
	CultureAndReligiousInfo ReligiousInfo   `json:"cultureAndReligiousInfo"`
	FamilyInfo              FamilyInfo      `json:"familyInfo"`
	SpouseExpectation       json.RawMessage `json:"spouseExpctation,omitempty"`
	Tags                    []string        `json:"tags,omitempty"`
	CreatedAt               time.Time       `json:"createdAt"`
	UpdatedAt               time.Time       `json:"updatedAt"`

	PasswordHash string `json:"-"`
}

// FullName joins first and last name.
func (p *Profile) FullName() string {
	return strings.TrimSpace(p.PersonalInfo.FirstName + " " + p.PersonalInfo.LastName)
}

// Email returns the login identity.
func (p *Profile) Email() string { return p.ContactInfo.Email }

// clone returns a deep copy so stores never hand out aliased state.
func (p *Profile) clone() *Profile {
	out := *p
	out.PersonalInfo.Hobbies = slices.Clone(p.PersonalInfo.Hobbies)
	out.PersonalInfo.ProfileImages = slices.Clone(p.PersonalInfo.ProfileImages)
	out.Tags = slices.Clone(p.Tags)
	out.SpouseExpectation = slices.Clone(p.SpouseExpectation)
	if p.ResidentialAddr != nil {
		addr := *p.ResidentialAddr
		out.ResidentialAddr = &addr
	}
	if p.PermanentAddr != nil {
		addr := *p.PermanentAddr
		out.PermanentAddr = &addr
	}
	return &out
}

// NormalizeEmail trims and lower-cases an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
