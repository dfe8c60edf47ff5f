package artifact

import (
	"fmt"
	"strconv"
	"strings"
)

func (m *MindMap) normalize() {
	for i := range m.Nodes {
		n := &m.Nodes[i]
		n.ID = strings.TrimSpace(n.ID)
		n.Label = strings.TrimSpace(n.Label)
		n.Type = strings.TrimSpace(n.Type)
	}
	for i := range m.Edges {
		e := &m.Edges[i]
		e.From = strings.TrimSpace(e.From)
		e.To = strings.TrimSpace(e.To)
		e.Label = strings.TrimSpace(e.Label)
	}
}

func (m *MindMap) check() error {
	ids := make(map[string]struct{}, len(m.Nodes))
	for _, n := range m.Nodes {
		if _, dup := ids[n.ID]; dup {
			return fmt.Errorf("duplicate node id %q", n.ID)
		}
		ids[n.ID] = struct{}{}
	}
	for i, e := range m.Edges {
		if _, ok := ids[e.From]; !ok {
			return fmt.Errorf("edges[%d] references unknown node %q", i, e.From)
		}
		if _, ok := ids[e.To]; !ok {
			return fmt.Errorf("edges[%d] references unknown node %q", i, e.To)
		}
	}
	return nil
}

func (f *Flashcards) normalize() {
	taken := make(map[string]struct{}, len(f.Cards))
	for i := range f.Cards {
		c := &f.Cards[i]
		c.ID = strings.TrimSpace(c.ID)
		c.Question = strings.TrimSpace(c.Question)
		c.Answer = strings.TrimSpace(c.Answer)
		if c.ID != "" {
			taken[c.ID] = struct{}{}
		}
	}
	next := 1
	for i := range f.Cards {
		c := &f.Cards[i]
		if c.ID != "" {
			continue
		}
		if next <= i {
			next = i + 1
		}
		for {
			id := "card-" + strconv.Itoa(next)
			next++
			if _, dup := taken[id]; !dup {
				c.ID = id
				taken[id] = struct{}{}
				break
			}
		}
	}
}

func (p *Presentation) normalize() {
	p.Title = strings.TrimSpace(p.Title)
	for i := range p.Slides {
		s := &p.Slides[i]
		s.Title = strings.TrimSpace(s.Title)
		s.Notes = strings.TrimSpace(s.Notes)
		trimAll(s.Bullets)
	}
}

func (e *ELI5) normalize() {
	e.Title = strings.TrimSpace(e.Title)
	e.Explanation = strings.TrimSpace(e.Explanation)
	trimAll(e.Analogies)
}

func (q *QA) normalize() {
	for i := range q.Items {
		it := &q.Items[i]
		it.Question = strings.TrimSpace(it.Question)
		it.Answer = strings.TrimSpace(it.Answer)
		it.Source = strings.TrimSpace(it.Source)
	}
}

func (v *Video) normalize() {
	v.Title = strings.TrimSpace(v.Title)
	v.Summary = strings.TrimSpace(v.Summary)
	for i := range v.Scenes {
		s := &v.Scenes[i]
		s.Heading = strings.TrimSpace(s.Heading)
		s.Narration = strings.TrimSpace(s.Narration)
	}
}

func trimAll(ss []string) {
	for i := range ss {
		ss[i] = strings.TrimSpace(ss[i])
	}
}
