package xmlbs

import (
	"github.com/dpotapov/xmlbs/markup"
)

type pipeline struct {
	cm    markup.ContentModel
	er    markup.EntityResolver
	opts  options
	fixes []markup.Fix
}

func (p *pipeline) run(tokens []markup.Token) []markup.Token {
	log := p.opts.logger
	log.Debug("Tokenize", "tokens", len(tokens))

	toks := p.cleanupTags(tokens)
	log.Debug("Cleanup tags", "tokens", len(toks))

	tree := markup.Build(toks, p.cm)
	log.Debug("Build tree", "nodes", tree.Len(), "depth", tree.Depth(markup.Root))

	balanceOpts := []markup.BalanceOption{markup.WithRecorder(p.record)}
	if p.opts.annotate {
		balanceOpts = append(balanceOpts, markup.WithAnnotate())
	}
	markup.Balance(tree, p.cm, balanceOpts...)

	out := p.mergeText(markup.Flatten(tree))
	log.Debug("Flatten tree", "tokens", len(out), "fixes", len(p.fixes))
	return out
}

func (p *pipeline) record(f markup.Fix) {
	p.fixes = append(p.fixes, f)
	p.opts.logger.Debug("Repair", "action", f.Kind.String(), "token", f.Token.String())
}

// cleanupTags drops tags unknown to the content model and the undeclared
// attributes of the remaining ones.
func (p *pipeline) cleanupTags(tokens []markup.Token) []markup.Token {
	out := make([]markup.Token, 0, len(tokens))
	for _, tok := range tokens {
		tag, ok := tok.(*markup.Tag)
		if !ok {
			out = append(out, tok)
			continue
		}
		if !p.cm.IsKnownTag(tag.Name) {
			fix := markup.Fix{Kind: markup.UnknownTag, Token: tag}
			p.record(fix)
			if p.opts.annotate {
				out = append(out, fix.Comment())
			}
			continue
		}
		p.cm.RetainKnownAttributes(tag)
		out = append(out, tok)
	}
	return out
}

// mergeText joins runs of adjacent text tokens into one, separating their
// data by a single space.
func (p *pipeline) mergeText(tokens []markup.Token) []markup.Token {
	out := tokens[:0]
	for _, tok := range tokens {
		txt, ok := tok.(*markup.Text)
		if ok && len(out) > 0 {
			if last, ok := out[len(out)-1].(*markup.Text); ok {
				out[len(out)-1] = markup.NewText(last.Raw+" "+txt.Raw, p.er)
				continue
			}
		}
		out = append(out, tok)
	}
	return out
}
