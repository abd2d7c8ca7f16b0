package signup

// Values is a snapshot of the three field values.
type Values struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Get returns the value of f.
func (v Values) Get(f Field) string {
	switch f {
	case Email:
		return v.Email
	case Password:
		return v.Password
	case ConfirmPassword:
		return v.ConfirmPassword
	default:
		return ""
	}
}

// FormState is the state of one rendered signup form. Errors are only
// recomputed by Submit; editing a field leaves the last result in place.
type FormState struct {
	values    Values
	errors    ErrorSet
	submitted bool
}

func NewFormState() *FormState {
	return &FormState{errors: ErrorSet{}}
}

// SetField replaces the value of f. It returns an error wrapping
// ErrUnknownField if f is not one of the form fields.
func (s *FormState) SetField(f Field, value string) error {
	switch f {
	case Email:
		s.values.Email = value
	case Password:
		s.values.Password = value
	case ConfirmPassword:
		s.values.ConfirmPassword = value
	default:
		_, err := ParseField(string(f))
		return err
	}
	return nil
}

// Submit validates the current values and replaces the error set with the
// result.
func (s *FormState) Submit() ErrorSet {
	s.errors = Validate(s.values.Email, s.values.Password, s.values.ConfirmPassword)
	s.submitted = true
	return s.errors.clone()
}

func (s *FormState) Value(f Field) string {
	return s.values.Get(f)
}

func (s *FormState) Values() Values {
	return s.values
}

// Errors returns a copy of the error set as of the last Submit.
func (s *FormState) Errors() ErrorSet {
	return s.errors.clone()
}

func (s *FormState) Submitted() bool {
	return s.submitted
}
