package genai

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"restauro/internal/domain"
)

// Restore edits a single photo following instruction.
func (c *Client) Restore(ctx context.Context, req domain.RestoreRequest) (domain.ProcessResult, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.imageModel
	}
	return c.generateImage(ctx, call{
		model: model,
		parts: []geminiPart{
			imagePart(req.Image, req.MimeType),
			{Text: strings.TrimSpace(req.Instruction)},
		},
		system:      restoreSystemInstruction(req.Locale),
		temperature: restoreTemperature,
		aspect:      "1:1",
	})
}

// Merge synthesizes Count variants from two photos. Each variant is an
// independent request; temperature grows with the variant index.
func (c *Client) Merge(ctx context.Context, req domain.MergeRequest) ([]domain.ProcessResult, error) {
	count := domain.ClampVariants(req.Count)
	a := imagePart(req.ImageA, req.MimeA)
	b := imagePart(req.ImageB, req.MimeB)
	system := mergeSystemInstruction(req.Locale)
	instruction := strings.TrimSpace(req.Instruction)
	return c.fanOut(ctx, count, func(i int) call {
		return call{
			model:       c.imageModel,
			parts:       []geminiPart{a, b, {Text: instruction}},
			system:      system,
			temperature: variantTemperature(mergeBaseTemp, mergeTempStep, i),
		}
	})
}

// Generate produces Count variants from a prompt, optionally conditioned on a
// base image.
func (c *Client) Generate(ctx context.Context, req domain.GenerateRequest) ([]domain.ProcessResult, error) {
	count := domain.ClampVariants(req.Count)
	aspect := NormalizeAspectRatio(req.AspectRatio)
	system := generateSystemInstruction(req.Locale)
	var base *geminiPart
	if strings.TrimSpace(req.BaseImage) != "" {
		part := imagePart(req.BaseImage, req.BaseMime)
		base = &part
	}
	return c.fanOut(ctx, count, func(i int) call {
		parts := make([]geminiPart, 0, 2)
		if base != nil {
			parts = append(parts, *base)
		}
		parts = append(parts, geminiPart{Text: buildVariationPrompt(req.Prompt, count, i)})
		return call{
			model:       c.imageModel,
			parts:       parts,
			system:      system,
			temperature: variantTemperature(generateBaseTemp, generateTempStep, i),
			aspect:      aspect,
		}
	})
}

// Chat answers a free-form text message.
func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	in := call{
		model:       c.textModel,
		parts:       []geminiPart{{Text: strings.TrimSpace(message)}},
		system:      chatSystemInstruction(),
		temperature: chatTemperature,
		textOnly:    true,
	}
	resp, err := c.invokeWithRetry(ctx, in)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(extractText(resp))
	if text == "" {
		return "", fmt.Errorf("%w: empty chat response", domain.ErrProviderFailure)
	}
	return text, nil
}

// fanOut issues n calls concurrently and assembles results in index order.
// Every call runs to completion; the first error fails the operation.
func (c *Client) fanOut(ctx context.Context, n int, build func(i int) call) ([]domain.ProcessResult, error) {
	results := make([]domain.ProcessResult, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		in := build(i)
		g.Go(func() error {
			res, err := c.generateImage(ctx, in)
			if err != nil {
				return fmt.Errorf("variant %d: %w", i+1, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
