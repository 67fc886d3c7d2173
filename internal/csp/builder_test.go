package csp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSerializesExample(t *testing.T) {
	p, err := NewBuilder().
		DefaultSrc(Self).
		ScriptSrc(Self, Host("cdn.example.com")).
		Build()
	require.NoError(t, err)
	assert.Equal(t, "default-src 'self'; script-src 'self' cdn.example.com", Serialize(p))
	assert.Equal(t, HeaderEnforce, HeaderName(p))
}

func TestBuildRejectsNoneWithOtherSources(t *testing.T) {
	p, err := NewBuilder().ObjectSrc(None, Self).Build()
	require.Error(t, err)
	assert.Nil(t, p)

	var errs ValidationErrors
	require.True(t, errors.As(err, &errs))
	assert.True(t, errs.Has(ConflictingSources, ObjectSrc))
	assert.ErrorIs(t, err, ErrConflictingSources)
	assert.ErrorIs(t, err, &ValidationError{Kind: ConflictingSources, Directive: ObjectSrc})
	assert.NotErrorIs(t, err, &ValidationError{Kind: ConflictingSources, Directive: ScriptSrc})
}

func TestBuildAllowsSingleNone(t *testing.T) {
	p, err := NewBuilder().ObjectSrc(None).Build()
	require.NoError(t, err)
	assert.Equal(t, "object-src 'none'", p.String())
}

func TestBuildCollectsAllErrors(t *testing.T) {
	_, err := NewBuilder().
		ObjectSrc(None, Self).
		ImgSrc(Host("bad host")).
		ConnectSrc(Scheme("1http")).
		FontSrc().
		ReportURI("not a uri").
		Build()
	require.Error(t, err)

	errs := err.(ValidationErrors)
	assert.Len(t, errs, 5)
	assert.True(t, errs.Has(ConflictingSources, ObjectSrc))
	assert.True(t, errs.Has(InvalidHost, ImgSrc))
	assert.True(t, errs.Has(InvalidScheme, ConnectSrc))
	assert.True(t, errs.Has(EmptyDirective, FontSrc))
	assert.ErrorIs(t, err, ErrInvalidReportURI)
}

func TestSetterReplacesPreviousValue(t *testing.T) {
	p, err := NewBuilder().
		ScriptSrc(Self, Host("a.example.com")).
		ScriptSrc(Host("b.example.com")).
		Build()
	require.NoError(t, err)

	got, ok := p.Directive(ScriptSrc)
	require.True(t, ok)
	assert.Equal(t, []Source{Host("b.example.com")}, got)
}

func TestSetterCollapsesDuplicates(t *testing.T) {
	p := NewBuilder().ImgSrc(Self, Scheme("data"), Self, Scheme("data"), Host("x.test")).BuildUnchecked()
	assert.Equal(t, "img-src 'self' data: x.test", p.String())
}

func TestSetRejectsNonSourceDirective(t *testing.T) {
	_, err := NewBuilder().DefaultSrc(Self).Set(ReportURI, Self).Build()
	require.Error(t, err)
	assert.True(t, err.(ValidationErrors).Has(UnknownDirective, ReportURI))
}

func TestNonceOutsideScriptIsWarning(t *testing.T) {
	b := NewBuilder().
		DefaultSrc(Self).
		ImgSrc(Self, Nonce("abc123")).
		ScriptSrc(Self, Nonce("abc123"))
	p, err := b.Build()
	require.NoError(t, err)
	require.NotNil(t, p)

	w := b.Warnings()
	require.Len(t, w, 1)
	assert.Equal(t, ImgSrc, w[0].Directive)
	assert.Equal(t, Nonce("abc123"), w[0].Source)
}

func TestInvalidHashValue(t *testing.T) {
	_, err := NewBuilder().ScriptSrc(Hash(SHA256, "dG9vc2hvcnQ=")).Build()
	require.Error(t, err)
	assert.True(t, err.(ValidationErrors).Has(InvalidHash, ScriptSrc))

	_, err = NewBuilder().ScriptSrc(ComputeHash(SHA384, []byte("alert(1)"))).Build()
	assert.NoError(t, err)
}

func TestReportURIValidation(t *testing.T) {
	cases := map[string]bool{
		"/csp-report":                      true,
		"https://reports.example.com/csp":  true,
		"http://localhost:8080/r":          true,
		"ftp://example.com/r":              false,
		"//example.com/r":                  false,
		"relative/path":                    false,
		"/csp report":                      false,
		"https:///nohost":                  false,
	}
	for uri, ok := range cases {
		_, err := NewBuilder().DefaultSrc(Self).ReportURI(uri).Build()
		if ok {
			assert.NoError(t, err, uri)
		} else {
			assert.ErrorIs(t, err, ErrInvalidReportURI, uri)
		}
	}
}

func TestSandboxTokens(t *testing.T) {
	p, err := NewBuilder().Sandbox("allow-scripts", "allow-forms").Build()
	require.NoError(t, err)
	assert.Equal(t, "sandbox allow-scripts allow-forms", p.String())

	_, err = NewBuilder().Sandbox("allow-everything").Build()
	require.Error(t, err)
	assert.True(t, err.(ValidationErrors).Has(InvalidSandboxToken, Sandbox))
}

func TestBuilderReuseDoesNotMutateBuiltPolicy(t *testing.T) {
	b := NewBuilder().DefaultSrc(Self)
	first, err := b.Build()
	require.NoError(t, err)

	b.DefaultSrc(None).ImgSrc(Scheme("data"))
	second, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, "default-src 'self'", first.String())
	assert.Equal(t, "default-src 'none'; img-src data:", second.String())
}

func TestBuildUncheckedSkipsValidation(t *testing.T) {
	b := NewBuilder().ObjectSrc(None, Self).ImgSrc(Host("bad host"))
	p := b.BuildUnchecked()
	require.NotNil(t, p)
	assert.Equal(t, "img-src bad host; object-src 'none' 'self'", p.String())

	_, err := Validate(p)
	require.Error(t, err)
	errs := err.(ValidationErrors)
	assert.True(t, errs.Has(ConflictingSources, ObjectSrc))
	assert.True(t, errs.Has(InvalidHost, ImgSrc))
}
