package annotate

import "strings"

// SpecHelp documents the annotation spec format.
var SpecHelp = strings.TrimSpace(`
Spec JSON schema (minimal):
{
  "defaults": {
    "units": "px",
    "auto_scale": true,
    "outline": true,
    "auto_fit": true,
    "fit_mode": "luma",
    "fit_threshold": 160,
    "fit_target": "dark",
    "fit_min_pixels": 30,
    "fit_min_coverage": 0.6,
    "fit_pad": 0
  },
  "annotations": [
    {"type": "rect", "x": "10%", "y": "20%", "w": "35%", "h": "12%", "intent": "target", "action": "inspect", "color": "#FF3B30"},
    {"type": "arrow", "from": "cta", "to": "nearest", "color": "#0A84FF"},
    {"type": "text", "x": 130, "y": 90, "text": "Add button", "anchor": "cta", "color": "#FFFFFF"},
    {"type": "spotlight", "x": 110, "y": 70, "w": 190, "h": 60, "radius": 10}
  ]
}

Notes:
- auto-fit is enabled by default for rect/spotlight; disable with "fit": false or defaults.auto_fit=false.
- auto-fit keeps the detected size and recenters it within the declared box.
- coordinate fields accept px (default), "%" strings, and rel/fraction units via defaults.units="rel".
- anchor text/arrow endpoints via id/index/nearest with optional pos+offset.
- semantic fields like severity/issue/hypothesis/next_action/verify are preserved in metadata sidecars.
- specs may also be YAML (.yaml, .yml) or a script (.js) that evaluates to the spec; scripts see image.width and image.height.
`)
