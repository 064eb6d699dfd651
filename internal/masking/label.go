package masking

// Label identifies the kind of PII an entity represents.
type Label string

const (
	LabelEmail         Label = "email"
	LabelPhoneNumber   Label = "phone_number"
	LabelDOB           Label = "dob"
	LabelAadhar        Label = "aadhar_num"
	LabelCreditDebitNo Label = "credit_debit_no"
	LabelCVV           Label = "cvv_no"
	LabelExpiry        Label = "expiry_no"
	LabelFullName      Label = "full_name"
)

// Labels returns every supported label in detection order.
func Labels() []Label {
	return []Label{
		LabelEmail,
		LabelPhoneNumber,
		LabelDOB,
		LabelAadhar,
		LabelCreditDebitNo,
		LabelCVV,
		LabelExpiry,
		LabelFullName,
	}
}

// Valid reports whether l belongs to the closed label set.
func (l Label) Valid() bool {
	for _, known := range Labels() {
		if l == known {
			return true
		}
	}
	return false
}

// Tag returns the literal token that replaces a masked span.
func (l Label) Tag() string {
	return "[" + string(l) + "]"
}

func (l Label) String() string {
	return string(l)
}
