package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	appErrors "github.com/Aayushstha1/school-mgmt-api/pkg/errors"
)

func TestComputeGradeBands(t *testing.T) {
	cases := []struct {
		name    string
		marks   int
		total   int
		passing int
		want    Grade
	}{
		{"top band", 95, 100, 40, GradeAPlus},
		{"boundary ninety", 90, 100, 40, GradeAPlus},
		{"a band", 85, 100, 40, GradeA},
		{"boundary eighty", 80, 100, 40, GradeA},
		{"b plus band", 75, 100, 40, GradeBPlus},
		{"b band", 60, 100, 40, GradeB},
		{"c plus band", 55, 100, 40, GradeCPlus},
		{"c band", 40, 100, 40, GradeC},
		{"fail", 10, 100, 40, GradeF},
		{"full marks", 50, 50, 20, GradeAPlus},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			grade, err := ComputeGrade(tc.marks, tc.total, tc.passing)
			require.NoError(t, err)
			require.Equal(t, tc.want, grade)
		})
	}
}

// The passing band compares the percentage value against the raw passing
// mark. With passing_marks=35 a 38% score lands in D even though 38 marks
// out of 100 is also above the absolute threshold; with passing_marks=20 on
// a 50-mark exam, 15 marks is 30% which clears the raw value 20 and grades D
// despite being below the absolute passing score. These cases pin that
// behavior.
func TestComputeGradePassingBandUsesRawThreshold(t *testing.T) {
	grade, err := ComputeGrade(38, 100, 35)
	require.NoError(t, err)
	require.Equal(t, GradeD, grade)

	grade, err = ComputeGrade(15, 50, 20)
	require.NoError(t, err)
	require.Equal(t, GradeD, grade)

	grade, err = ComputeGrade(9, 50, 20)
	require.NoError(t, err)
	require.Equal(t, GradeF, grade)
}

func TestComputeGradeDeterministic(t *testing.T) {
	first, err := ComputeGrade(72, 100, 40)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := ComputeGrade(72, 100, 40)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestComputeGradeInvalidTotal(t *testing.T) {
	_, err := ComputeGrade(10, 0, 40)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, appErrors.ErrInvalidExamConfig.Code, appErr.Code)

	_, err = ComputeGrade(10, -5, 40)
	require.Error(t, err)
}

func TestValidExamType(t *testing.T) {
	require.True(t, ValidExamType(ExamTypeFinal))
	require.True(t, ValidExamType(ExamTypeUnitTest))
	require.False(t, ValidExamType(ExamType("pop_quiz")))
}
