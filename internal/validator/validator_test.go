package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fpm-git/gabagool/internal/entity"
	"github.com/fpm-git/gabagool/internal/errors"
	"github.com/fpm-git/gabagool/internal/jsdoc"
)

func validRegistry(t *testing.T) *entity.Registry {
	t.Helper()
	reg := entity.NewRegistry()

	post := entity.New("BlogPost", "/srv/api/models/BlogPost.js", entity.KindModel)
	post.Owner = "root project"
	props := entity.NewProperties()
	props.Set("type", "string")
	props.Set("required", true)
	props.Set("maxLength", float64(120))
	post.Attributes = append(post.Attributes, &entity.Attribute{
		Name:       "title",
		Properties: props,
		Doc:        &jsdoc.Doc{Description: "Headline."},
		Line:       4,
	})
	post.Functions = append(post.Functions, &entity.Function{
		Name:   "publish",
		Params: []string{"id", "...rest"},
		Async:  true,
		Doc: &jsdoc.Doc{
			Parameters: []jsdoc.Param{{Name: "id", Types: []string{"string"}}},
			Returns:    &jsdoc.Returns{Types: []string{"boolean"}},
		},
		Line: 10,
	})
	require.NoError(t, reg.Add(post))

	require.NoError(t, reg.Add(entity.New("Mailer", "/srv/api/services/Mailer.js", entity.KindService)))
	return reg
}

func TestValidateRegistry(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	assert.NoError(t, v.ValidateRegistry(validRegistry(t)))
	assert.NoError(t, v.ValidateRegistry(entity.NewRegistry()))
}

func TestValidateRegistryRejectsBadNames(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	reg := validRegistry(t)
	require.NoError(t, reg.Add(entity.New("user-profile", "/srv/api/models/user-profile.js", entity.KindModel)))

	err = v.ValidateRegistry(reg)
	require.Error(t, err)
	assert.True(t, errors.IsStructural(err))
	assert.Contains(t, err.Error(), "descriptor contract")
}

func TestValidateRegistryRejectsNonScalarProperty(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	reg := validRegistry(t)
	post, _ := reg.Model("BlogPost")
	post.Attributes[0].Properties.Set("columnType", []string{"text"})

	require.Error(t, v.ValidateRegistry(reg))
}

func TestValidateJSON(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	cases := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{"valid", `{"name":"find","params":["a","...b"],"async":false,"line":1}`, false},
		{"bad_param", `{"name":"find","params":["{a}"],"async":false,"line":1}`, true},
		{"negative_line", `{"name":"find","params":[],"async":false,"line":-1}`, true},
		{"unknown_field", `{"name":"find","params":[],"async":false,"line":1,"extra":true}`, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.ValidateJSON([]byte(tc.data), "#Function")
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
