package normalize

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

var sensorIncludes = []string{"stdio.h", "stdlib.h", "sensor.h"}

func TestNormalize_StripsFences(t *testing.T) {
	in := "```c\n#include \"unity.h\"\nvoid test_a(void) {}\n```\n"
	out := Normalize(in, sensorIncludes)
	assert.NotContains(t, out, "```")
	assert.Contains(t, out, `#include "unity.h"`)
}

func TestNormalize_FloatAssertions(t *testing.T) {
	in := "void test_temp(void) {\n    TEST_ASSERT_EQUAL_FLOAT(25.0f, get_temperature_celsius());\n}\n"
	out := Normalize(in, sensorIncludes)
	assert.Contains(t, out, "TEST_ASSERT_FLOAT_WITHIN(0.01f, 25.0f, get_temperature_celsius())")
	assert.NotContains(t, out, "TEST_ASSERT_EQUAL_FLOAT")
}

func TestNormalize_MacroSpellings(t *testing.T) {
	in := "void test_raw(void) {\n    TEST_ASSERT_GREATER_THAN_EQUAL_INT(0, raw);\n    TEST_ASSERT_LESS_THAN_EQUAL_INT(1023, raw);\n}\n"
	out := Normalize(in, sensorIncludes)
	assert.Contains(t, out, "TEST_ASSERT_GREATER_OR_EQUAL_INT(0, raw)")
	assert.Contains(t, out, "TEST_ASSERT_LESS_OR_EQUAL_INT(1023, raw)")
}

func TestNormalize_ClampsBoundedLiterals(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "absolute zero",
			in:   "void test_cold(void) { check(-273.15f); }",
			want: "check(-40.0f)",
		},
		{
			name: "huge magnitude",
			in:   "void test_hot(void) { check(1e100); }",
			want: "check(1000.0f)",
		},
		{
			name: "rand stub overshoot",
			in:   "void test_raw(void) { stub_rand.return_value = 2000; }",
			want: "stub_rand.return_value = 1023;",
		},
		{
			name: "rand stub in range untouched",
			in:   "void test_raw(void) { stub_rand.return_value = 512; }",
			want: "stub_rand.return_value = 512;",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, Normalize(tt.in, sensorIncludes), tt.want)
		})
	}
}

func TestNormalize_StripsEmbeddedMain(t *testing.T) {
	in := `void test_a(void) { TEST_ASSERT_TRUE(1); }

int main(void) {
    int x = 0;
    if (x) {
        x = 1;
    }
    return 0;
}
`
	out := Normalize(in, sensorIncludes)
	// The embedded application main is gone; the synthesized runner remains.
	assert.NotContains(t, out, "int x = 0;")
	assert.Contains(t, out, "UNITY_BEGIN();")
	assert.Contains(t, out, "RUN_TEST(test_a);")
}

func TestNormalize_MainCallNeedsExternDecl(t *testing.T) {
	withDecl := "extern int main(void);\nvoid test_main(void) {\n    int result = main();\n    TEST_ASSERT_EQUAL_INT(0, result);\n}\n"
	out := Normalize(withDecl, sensorIncludes)
	assert.Contains(t, out, "result = main();")

	withoutDecl := "void test_main(void) {\n    main();\n    TEST_ASSERT_TRUE(1);\n}\n"
	out = Normalize(withoutDecl, sensorIncludes)
	assert.NotContains(t, out, "main();\n    TEST_ASSERT_TRUE")
}

func TestNormalize_StripsConsoleIO(t *testing.T) {
	in := "void test_a(void) {\n    printf(\"debug\\n\");\n    TEST_ASSERT_TRUE(1);\n}\n"
	out := Normalize(in, sensorIncludes)
	assert.NotContains(t, out, "printf")
	assert.Contains(t, out, "TEST_ASSERT_TRUE(1);")
}

func TestNormalize_FiltersIncludes(t *testing.T) {
	in := strings.Join([]string{
		`#include "unity.h"`,
		`#include "sensor.h"`,
		`#include <stdint.h>`,
		`#include "invented_helpers.h"`,
		`#include "main.h"`,
		"void test_a(void) { TEST_ASSERT_TRUE(1); }",
	}, "\n")
	out := Normalize(in, sensorIncludes)
	assert.Contains(t, out, `#include "unity.h"`)
	assert.Contains(t, out, `#include "sensor.h"`)
	assert.Contains(t, out, `#include <stdint.h>`)
	assert.NotContains(t, out, "invented_helpers.h")
	assert.NotContains(t, out, "main.h")
}

func TestNormalize_DoesNotInsertFrameworkHeader(t *testing.T) {
	// A missing unity.h include is a validator finding, not something the
	// normalizer papers over.
	in := "void test_a(void) { TEST_ASSERT_TRUE(1); }"
	out := Normalize(in, sensorIncludes)
	assert.NotContains(t, out, `#include "unity.h"`)
}

func TestNormalize_SynthesizesRunner(t *testing.T) {
	in := "#include \"unity.h\"\nvoid test_b(void) {}\nvoid test_a(void) {}\n"
	out := Normalize(in, sensorIncludes)

	// Discovery order, not alphabetical.
	bIdx := strings.Index(out, "RUN_TEST(test_b);")
	aIdx := strings.Index(out, "RUN_TEST(test_a);")
	assert.Greater(t, aIdx, bIdx)
	assert.Greater(t, bIdx, 0)
	assert.Contains(t, out, "return UNITY_END();")
}

func TestNormalize_KeepsExistingRunner(t *testing.T) {
	in := "#include \"unity.h\"\nvoid test_a(void) {}\nint main(void) {\n    UNITY_BEGIN();\n    RUN_TEST(test_a);\n    return UNITY_END();\n}\n"
	out := Normalize(in, sensorIncludes)
	assert.Equal(t, 1, strings.Count(out, "UNITY_BEGIN"))
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"```c\n#include \"unity.h\"\n#include \"bogus.h\"\nvoid test_a(void) {\n    printf(\"x\");\n    TEST_ASSERT_EQUAL_FLOAT(1.0f, f());\n}\nint main(void) { return 0; }\n```",
		"void test_only(void) { stub_rand.return_value = 5000; }",
		"#include \"unity.h\"\nvoid test_a(void) {}\n",
		"",
		"no test functions at all\n",
	}
	for _, in := range inputs {
		once := Normalize(in, sensorIncludes)
		twice := Normalize(once, sensorIncludes)
		if diff := cmp.Diff(once, twice); diff != "" {
			t.Errorf("normalize not idempotent for %q (-once +twice):\n%s", in, diff)
		}
	}
}

func TestSafe_RecoversToInput(t *testing.T) {
	// Safe never alters behavior for well-formed input.
	in := "#include \"unity.h\"\nvoid test_a(void) {}\n"
	assert.Equal(t, Normalize(in, sensorIncludes), Safe(in, sensorIncludes))
}
