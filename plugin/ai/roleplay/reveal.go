package roleplay

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/hrygo/rivalchat/store"
)

var revealMarkdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RevealMarkdown lists both persona records field by field, grouped by section.
func RevealMarkdown(pair *store.PersonaPair) string {
	var b strings.Builder
	b.WriteString("# 上帝视角 - 角色档案\n")
	if pair == nil {
		pair = &store.PersonaPair{}
	}
	writePersona(&b, "油腻男A", pair.A)
	writePersona(&b, "油腻男B", pair.B)
	return b.String()
}

// RevealHTML renders RevealMarkdown to HTML.
func RevealHTML(pair *store.PersonaPair) ([]byte, error) {
	var buf bytes.Buffer
	if err := revealMarkdown.Convert([]byte(RevealMarkdown(pair)), &buf); err != nil {
		return nil, errors.Wrap(err, "failed to render reveal markdown")
	}
	return buf.Bytes(), nil
}

func writePersona(b *strings.Builder, slot string, p *store.Persona) {
	if p == nil {
		fmt.Fprintf(b, "\n## %s\n\n_尚未生成_\n", slot)
		return
	}

	fmt.Fprintf(b, "\n## %s：%s\n\n", slot, p.Name)
	fmt.Fprintf(b, "- ID：`%s`\n", p.ID)
	fmt.Fprintf(b, "- 年龄：%d岁\n", p.Age)

	section(b, "职业",
		"职位", p.Career.Title,
		"公司", p.Career.Company,
		"行业", p.Career.Industry,
		"年收入", p.Career.AnnualIncome,
		"下属", fmt.Sprintf("%d人", p.Career.Subordinates),
	)
	section(b, "教育背景",
		"学历", p.Education.Degree,
		"学校", p.Education.School,
		"专业", p.Education.Major,
		"留学经历", p.Education.StudyAbroad,
	)
	section(b, "家庭背景",
		"父亲", p.FamilyBackground.FatherOccupation,
		"母亲", p.FamilyBackground.MotherOccupation,
		"家庭地位", p.FamilyBackground.FamilyStatus,
		"房产", fmt.Sprintf("%d套", p.FamilyBackground.PropertyCount),
		"座驾", p.FamilyBackground.CarBrand,
	)
	section(b, "人生哲学",
		"座右铭", p.Philosophy.LifeMotto,
		"成功秘诀", p.Philosophy.SuccessSecret,
		"世界观", p.Philosophy.Worldview,
	)
	section(b, "性格与爱好",
		"性格特点", strings.Join(p.PersonalityTraits, "、"),
		"口头禅", strings.Join(p.Catchphrases, "、"),
		"爱好", strings.Join(p.Hobbies, "、"),
	)
}

// section writes label/value pairs as a list, skipping empty values.
func section(b *strings.Builder, title string, pairs ...string) {
	fmt.Fprintf(b, "\n### %s\n\n", title)
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			continue
		}
		fmt.Fprintf(b, "- %s：%s\n", pairs[i], pairs[i+1])
	}
}
