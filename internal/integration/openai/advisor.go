package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/simverse/riversim/internal/engine"
	"github.com/simverse/riversim/internal/entities"
)

// AdvisorResponse defines the structured output from the advisory agent.
type AdvisorResponse struct {
	UserMessage        string `json:"user_message" jsonschema_description:"The advice to show back to the user in their original language"`
	SuggestTreatment   bool   `json:"suggest_treatment_plant" jsonschema_description:"Whether building a treatment plant is recommended right now"`
	SuggestRegulation  bool   `json:"suggest_regulation" jsonschema_description:"Whether enforcing strict regulation is recommended right now"`
	SuggestCleanup     bool   `json:"suggest_cleanup_drive" jsonschema_description:"Whether launching a cleanup drive is recommended right now"`
	SuggestLowerInputs bool   `json:"suggest_lower_inputs" jsonschema_description:"Whether lowering discharge or runoff sliders is recommended right now"`
}

// AdvisorService defines the interface for the basin advisory agent.
type AdvisorService interface {
	AdviseOnBasin(ctx context.Context, session *entities.Session, userMessage string) (*AdvisorResponse, error)
}

// advisorServiceImpl implements the AdvisorService interface.
type advisorServiceImpl struct {
	client openai.Client
	schema interface{}
}

// GenerateSchema generates a JSON schema for a given type.
func GenerateSchema[T any]() interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	return schema
}

// NewAdvisorService creates and initializes a new AdvisorService.
func NewAdvisorService() (AdvisorService, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	schema := GenerateSchema[AdvisorResponse]()

	return &advisorServiceImpl{
		client: client,
		schema: schema,
	}, nil
}

// AdviseOnBasin sends the current basin conditions and the user's question to
// the agent and returns its structured advice.
func (s *advisorServiceImpl) AdviseOnBasin(ctx context.Context, session *entities.Session, userMessage string) (*AdvisorResponse, error) {
	systemPrompt := fmt.Sprintf(`You are the senior environmental advisor of the River Everglade Basin, guiding a newly appointed Environmental Commissioner through a 30-day water pollution control campaign.

The campaign model:
- Industrial discharge and agricultural runoff (each 0-10) raise the pollution index daily.
- A Treatment Plant keeps only 30%% of daily pollution, Regulation keeps 60%%, and they stack.
- A Cleanup Drive boosts the river's natural recovery and speeds up health regeneration.
- High pollution depresses dissolved oxygen; DO below %.1f mg/L means hypoxia and fish kills.
- Aquatic health recovers only while DO is above 6 mg/L and pollution is below 20.

Current basin state:
- Day %d of %d
- Pollution index: %.1f (%s)
- Dissolved oxygen: %.2f mg/L (%s)
- Aquatic health: %.1f%% (%s)
- Active policies: treatment plant=%t, regulation=%t, cleanup drive=%t

Behavior:
1. Answer in the same language the user wrote in, in two or three sentences, concrete and specific to the numbers above.
2. Set the suggestion flags to the interventions that would most help right now; leave a flag false when the policy is already active or would not help.
3. If the question is off-topic, answer briefly and keep all suggestion flags false.

Output strictly in JSON.`,
		engine.HypoxiaThreshold,
		session.Day, engine.CampaignDays,
		session.Pollution, engine.PollutionStatus(session.Pollution),
		session.Oxygen, engine.OxygenStatus(session.Oxygen),
		session.Health, engine.HealthStatus(session.Health),
		session.Policies.TreatmentPlant, session.Policies.Regulation, session.Policies.CleanupDrive,
	)

	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "advisor_response",
		Description: openai.String("Structured basin advice with policy suggestion flags"),
		Schema:      s.schema,
		Strict:      openai.Bool(true),
	}

	respFormat := openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{JSONSchema: schemaParam},
	}

	chat, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userMessage),
		},
		ResponseFormat: respFormat,
		Model:          openai.ChatModelGPT4o,
	})

	if err != nil {
		return nil, fmt.Errorf("error calling OpenAI API: %w", err)
	}

	if len(chat.Choices) == 0 || chat.Choices[0].Message.Content == "" {
		return nil, errors.New("received empty response from OpenAI")
	}

	var resp AdvisorResponse
	err = json.Unmarshal([]byte(chat.Choices[0].Message.Content), &resp)
	if err != nil {
		log.Printf("Failed to unmarshal OpenAI response: %s\nRaw response: %s", err, chat.Choices[0].Message.Content)
		return nil, fmt.Errorf("error unmarshalling OpenAI response: %w", err)
	}

	return &resp, nil
}
