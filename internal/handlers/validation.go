package handlers

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/issuerelay/internal/bot"
	appErrors "github.com/charlesng35/issuerelay/pkg/errors"
	"github.com/charlesng35/issuerelay/pkg/response"
	appValidator "github.com/charlesng35/issuerelay/pkg/validator"
)

// issuePath is the :owner/:repo/:number triple shared by issue routes.
type issuePath struct {
	Owner  string `uri:"owner" json:"owner" validate:"required,ghname"`
	Repo   string `uri:"repo" json:"repo" validate:"required,ghname"`
	Number int    `uri:"number" json:"number" validate:"min=1"`
}

func (p issuePath) reference() bot.Reference {
	return bot.Reference{Owner: p.Owner, Repo: p.Repo, Number: p.Number}.Normalize()
}

// bindIssuePath binds and validates the issue identity from the URL. On failure an error
// response is written and false is returned.
func bindIssuePath(c *gin.Context) (bot.Reference, bool) {
	var path issuePath
	if err := c.ShouldBindUri(&path); err != nil {
		response.Error(c, appErrors.NewBadRequest("issue number must be a positive integer"))
		return bot.Reference{}, false
	}
	if err := appValidator.ValidateStruct(&path); err != nil {
		response.Error(c, appErrors.NewBadRequest(formatValidationError(err)))
		return bot.Reference{}, false
	}
	return path.reference(), true
}

// bindAndValidate binds the JSON payload into dest and runs struct validation rules.
// When validation fails, an error response is automatically written and false is returned.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return false
	}

	if err := appValidator.ValidateStruct(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest(formatValidationError(err)))
		return false
	}

	return true
}

func formatValidationError(err error) string {
	if err == nil {
		return "invalid request payload"
	}

	if ve, ok := err.(appValidator.ValidationErrors); ok {
		if len(ve) == 0 {
			return "invalid request payload"
		}

		messages := make([]string, 0, len(ve))
		for _, failure := range ve {
			field := prettifyFieldName(failure.Field)
			switch failure.Tag {
			case "required":
				messages = append(messages, fmt.Sprintf("%s is required", field))
			case "ghname":
				messages = append(messages, fmt.Sprintf("%s must be a valid GitHub name", field))
			case "min":
				messages = append(messages, fmt.Sprintf("%s must be at least %s", field, failure.Param))
			case "max":
				messages = append(messages, fmt.Sprintf("%s must be at most %s", field, failure.Param))
			default:
				if failure.Param != "" {
					messages = append(messages, fmt.Sprintf("%s failed validation: %s=%s", field, failure.Tag, failure.Param))
				} else {
					messages = append(messages, fmt.Sprintf("%s failed validation: %s", field, failure.Tag))
				}
			}
		}
		return strings.Join(messages, "; ")
	}

	return "invalid request payload"
}

func prettifyFieldName(name string) string {
	if name == "" {
		return "field"
	}
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		name = name[idx+1:]
	}
	name = strings.ReplaceAll(name, "_", " ")
	return strings.ToLower(name)
}
