package repair

import (
	"strings"
	"testing"
)

func TestRulesLoad(t *testing.T) {
	if len(rules) == 0 {
		t.Fatal("embedded rule table is empty")
	}
	for _, r := range rules {
		if r.Name == "" {
			t.Error("rule with no name")
		}
		if len(r.ErrorAny) == 0 && len(r.ErrorAll) == 0 {
			t.Errorf("rule %s has no error conditions", r.Name)
		}
		if len(r.Replace) == 0 && len(r.Rewrite) == 0 {
			t.Errorf("rule %s rewrites nothing", r.Name)
		}
	}
}

func TestApplyRulesNoMatchLeavesCodeAlone(t *testing.T) {
	code := "from manim import *\n\nclass S(Scene):\n    pass"
	fixed, fired := applyRules(code, "SomeUnrelatedError: nothing matches this")
	if fixed != code {
		t.Errorf("code changed without a matching rule")
	}
	if len(fired) != 0 {
		t.Errorf("rules fired: %v", fired)
	}
}

func TestApplyRulesConfigFrameRadius(t *testing.T) {
	code := "FRAME_X_MIN = config.frame_x_radius\nFRAME_X_MAX = config.frame_x_radius"
	errText := "AttributeError: 'ManimMLConfig' object has no attribute 'frame_x_radius'"

	fixed, fired := applyRules(code, errText)
	if !strings.Contains(fixed, "FRAME_X_MIN = -7.0") || !strings.Contains(fixed, "FRAME_X_MAX = 7.0") {
		t.Errorf("config access not replaced:\n%s", fixed)
	}
	if len(fired) != 1 || fired[0] != "config-frame-radius" {
		t.Errorf("fired = %v", fired)
	}
}

func TestApplyRulesArrowBuff(t *testing.T) {
	code := "a = Arrow3D(start=ORIGIN, end=UP, buff=0.1)\nb = Arrow3D(buff=0.2, start=LEFT, end=RIGHT)"
	errText := "TypeError: __init__() got an unexpected keyword argument 'buff'"

	fixed, _ := applyRules(code, errText)
	if strings.Contains(fixed, "buff") {
		t.Errorf("buff argument survived:\n%s", fixed)
	}
	if !strings.Contains(fixed, "Arrow3D(start=ORIGIN, end=UP)") {
		t.Errorf("trailing buff removal broke the call:\n%s", fixed)
	}
	if !strings.Contains(fixed, "Arrow3D(start=LEFT, end=RIGHT)") {
		t.Errorf("leading buff removal broke the call:\n%s", fixed)
	}
}

func TestApplyRulesStrayBackticks(t *testing.T) {
	code := "```python\nfrom manim import *\n```"
	fixed, _ := applyRules(code, "SyntaxError: invalid syntax")
	if strings.Contains(fixed, "`") {
		t.Errorf("backticks survived: %q", fixed)
	}
}

func TestApplyRulesArrayTruthValue(t *testing.T) {
	code := "if ball.get_bottom() < -3.5:\n    pass\nif box.get_right() >= 7:\n    pass"
	errText := "ValueError: The truth value of an array with more than one element is ambiguous"

	fixed, _ := applyRules(code, errText)
	if !strings.Contains(fixed, "ball.get_bottom()[1] < -3.5") {
		t.Errorf("get_bottom comparison not indexed:\n%s", fixed)
	}
	if !strings.Contains(fixed, "box.get_right()[0] >= 7") {
		t.Errorf("get_right comparison not indexed:\n%s", fixed)
	}
}

func TestApplyRulesMissingSVG(t *testing.T) {
	code := `car = SVGMobject("car.svg")` + "\n" + `icon = SVGMobject("rocket.svg")`
	errText := "OSError: could not find rocket.svg"

	fixed, _ := applyRules(code, errText)
	if strings.Contains(fixed, "SVGMobject") {
		t.Errorf("SVG references survived:\n%s", fixed)
	}
	if !strings.Contains(fixed, "Rectangle(height=0.5, width=1.0, color=BLUE)") {
		t.Errorf("car substitution missing:\n%s", fixed)
	}
}

func TestApplyRulesUndefinedSymbol(t *testing.T) {
	code := "self.play(Surround(square))"
	fixed, _ := applyRules(code, "NameError: name 'Surround' is not defined")
	if !strings.Contains(fixed, "Circumscribe(square)") {
		t.Errorf("Surround not rewritten:\n%s", fixed)
	}
}

func TestApplyRulesTransformOfAnimate(t *testing.T) {
	code := "self.play(Transform(sq, sq.animate.shift(UP)))"
	fixed, _ := applyRules(code, "TypeError: object of type 'function' has no len()")
	if !strings.Contains(fixed, "self.play(sq.animate.shift(UP))") {
		t.Errorf("Transform-of-animate not rewritten:\n%s", fixed)
	}
}

// Every rule must be idempotent: applying the fix to its own output is a no-op.
func TestApplyRulesIdempotent(t *testing.T) {
	cases := []struct {
		name    string
		code    string
		errText string
	}{
		{"config", "FRAME_X_MIN = config.frame_x_radius", "object has no attribute 'frame_x_radius'"},
		{"buff", "Arrow3D(start=ORIGIN, end=UP, buff=0.1)", "unexpected keyword argument 'buff'"},
		{"truth", "if ball.get_bottom() < -3.5: pass", "The truth value of an array with more than one element is ambiguous"},
		{"svg", `SVGMobject("car.svg")`, "could not find car.svg"},
		{"symbol", "Surround(sq)", "name 'Surround' is not defined"},
		{"frame size", "w = config.frame_width", "object has no attribute 'frame_width'"},
		{"import", "from manim import *, Surround", "SyntaxError: invalid syntax near import"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			once, fired := applyRules(tc.code, tc.errText)
			if len(fired) == 0 {
				t.Fatalf("no rule fired for %q", tc.errText)
			}
			twice, refired := applyRules(once, tc.errText)
			if twice != once {
				t.Errorf("second application changed the code:\n%q\n%q", once, twice)
			}
			if len(refired) != 0 {
				t.Errorf("rules re-fired on fixed code: %v", refired)
			}
		})
	}
}
