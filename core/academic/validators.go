package academic

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/alama/core"
)

var (
	uniqueCoursesTag  = "uniquecourses"
	uniqueCoursesText = "each course can only be submitted once per semester"
)

// InitValidators registers the record validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(newRecordStructValidation, NewRecord{})
	core.RegisterCustomTranslation(validate, translator, uniqueCoursesTag, uniqueCoursesText)
}

func newRecordStructValidation(sl validator.StructLevel) {
	nr := sl.Current().Interface().(NewRecord)
	seen := make(map[string]bool, len(nr.Subjects))
	for _, s := range nr.Subjects {
		key := strings.ToLower(core.CleanString(s.Name))
		if key == "" {
			continue
		}
		if seen[key] {
			sl.ReportError(nr.Subjects, "subjects", "Subjects", uniqueCoursesTag, "")
			return
		}
		seen[key] = true
	}
}

// Validate cleans and validates the submission.
func (nr *NewRecord) Validate(validate *validator.Validate) error {
	nr.StudentID = core.CleanString(nr.StudentID)
	nr.StudentName = core.CleanString(nr.StudentName)
	nr.Semester = core.CleanString(nr.Semester)
	for i := range nr.Subjects {
		nr.Subjects[i].Name = core.CleanString(nr.Subjects[i].Name)
	}
	return validate.Struct(nr)
}
