package llm

import "context"

// CredentialSource supplies the current API credential and model. The
// runtime settings store implements this so credential edits apply
// without a restart.
type CredentialSource interface {
	Credentials(ctx context.Context) (apiKey, model string, err error)
}

// Dynamic is an LLMProvider that resolves its credential on every call.
type Dynamic struct {
	source CredentialSource
}

func NewDynamic(source CredentialSource) *Dynamic {
	return &Dynamic{source: source}
}

func (d *Dynamic) resolve(ctx context.Context) (*OpenAIProvider, error) {
	apiKey, model, err := d.source.Credentials(ctx)
	if err != nil {
		return nil, err
	}
	return NewOpenAIProvider(apiKey, model)
}

func (d *Dynamic) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	p, err := d.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return p.ChatCompletion(ctx, req)
}

func (d *Dynamic) Embed(ctx context.Context, req EmbedRequest) (*EmbedResponse, error) {
	p, err := d.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return p.Embed(ctx, req)
}

func (d *Dynamic) ModelInfo() ModelMeta {
	p, err := d.resolve(context.Background())
	if err != nil {
		return ModelMeta{Provider: "openai"}
	}
	return p.ModelInfo()
}

func (d *Dynamic) HealthCheck(ctx context.Context) error {
	p, err := d.resolve(ctx)
	if err != nil {
		return err
	}
	return p.HealthCheck(ctx)
}
