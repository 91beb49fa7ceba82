package admission

import (
	"bytes"
	"fmt"
	"io"

	"github.com/darulhuda/madrasa/core/student"
)

// SlipFilename names the admission slip attached to approval emails.
const SlipFilename = "admission-slip.txt"

func admissionSlip(a Admission, s student.Student) io.Reader {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "ADMISSION SLIP")
	fmt.Fprintln(&buf)
	fmt.Fprintf(&buf, "Student:      %s\n", s.Name)
	fmt.Fprintf(&buf, "Guardian:     %s\n", a.GuardianName)
	fmt.Fprintf(&buf, "Department:   %s\n", a.Department)
	fmt.Fprintf(&buf, "Class:        %s\n", s.Class)
	fmt.Fprintf(&buf, "Roll:         %d\n", s.Roll)
	fmt.Fprintf(&buf, "Login mobile: %s\n", s.LoginMobile)
	fmt.Fprintf(&buf, "Approved on:  %s\n", a.DecidedAt.Format("2006-01-02"))
	return &buf
}
