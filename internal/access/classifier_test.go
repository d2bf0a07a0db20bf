package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	c := NewClassifier("/about", "robots.txt")

	cases := []struct {
		path string
		want RouteClass
	}{
		{"/", Public},
		{"", Public},
		{"/about", Public},
		{"/about/", Public},
		{"/robots.txt", Public},
		{"/_next/static/chunk.js", Passthrough},
		{"/api/profiles", Passthrough},
		{"/api", Passthrough},
		{"/health", Passthrough},
		{"/logo.svg", Passthrough},
		{"/images/banner.PNG", Passthrough},
		{"/auth", AuthPages},
		{"/auth/login", AuthPages},
		{"/auth/register/", AuthPages},
		{"/student", StudentArea},
		{"/student/complaints/42", StudentArea},
		{"/admin", AdminArea},
		{"/admin/complaints", AdminArea},
		{"/admin/export.js", AdminArea},
		{"/student/../admin", AdminArea},
		{"/studentx", Unclassified},
		{"/administrator", Unclassified},
		{"/apiary", Unclassified},
		{"/settings", Unclassified},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, c.Classify(tc.path), "path %q", tc.path)
	}
}

func TestZeroClassifierOnlyKnowsRoot(t *testing.T) {
	var c Classifier
	assert.Equal(t, Public, c.Classify("/"))
	assert.Equal(t, Unclassified, c.Classify("/about"))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "/", Normalize(""))
	assert.Equal(t, "/student", Normalize("student/"))
	assert.Equal(t, "/admin", Normalize("/student/../admin"))
	assert.Equal(t, "/a/b", Normalize("//a//b/"))
}
