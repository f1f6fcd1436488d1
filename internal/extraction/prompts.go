package extraction

// Instruction prompts are data, not logic: each names the JSON shape the
// oracle must reply with for one schema variant.

const busesPrompt = `
Analyze this screenshot of a PowerWorld Simulator buses dialog or grid view.
Extract all visible bus information into this JSON format:

{
  "buses": [
    {
      "number": <int>,
      "name": "<string>",
      "voltage_kv": <float>,
      "area": "<string>",
      "zone": "<string or null>",
      "type": "<string or null>",
      "mw_load": <float or null>,
      "mvar_load": <float or null>
    }
  ]
}

IMPORTANT:
- Only include buses that are clearly visible in the screenshot
- If a field is not visible or readable, use null
- The areas should be "Ativ Island" or "West Side County" if visible
- Bus types might include "Slack", "PV", "PQ", etc.
- Extract numbers accurately from the table/dialog

Return ONLY the JSON object, no additional text.
`

const contingencyPrompt = `
Analyze this screenshot of PowerWorld Simulator Contingency Analysis results.
Extract all visible contingency information into this JSON format:

{
  "contingencies": [
    {
      "number": <int>,
      "name": "<string>",
      "circuit": "<string or null>",
      "status": "<string>",
      "violations": <int or null>,
      "worst_violation": "<string or null>",
      "worst_percent": <float or null>
    }
  ],
  "summary": {
    "total_contingencies": <int>,
    "passed": <int>,
    "failed": <int>
  }
}

IMPORTANT:
- Only include contingencies that are clearly visible in the screenshot
- If a field is not visible or readable, use null
- Status might be "Converged", "Diverged", "Passed", "Failed", etc.
- Extract all row data accurately from the results table
- Count passed/failed for the summary

Return ONLY the JSON object, no additional text.
`

const contingencyMultiPrompt = `
You are analyzing multiple screenshots from PowerWorld Contingency Analysis.
Each image shows the Results tab for ONE contingency.

For each image, extract:
- Contingency header info (top of results): Number, Name, Circuit, XForms, Violations, Max Loading %
- Violation details table (if present): Category, Element Name, Value, Limit, Percent

Return a single JSON combining all contingencies:

{
  "contingencies": [
    {
      "number": <int>,
      "name": "<string>",
      "circuit": "<string or null>",
      "xforms": "<string or null>",
      "violations": <int>,
      "max_loading_percent": <float or null>,
      "violation_details": [
        {
          "category": "<string>",
          "element": "<string>",
          "value": <float>,
          "limit": <float>,
          "percent": <float>
        }
      ]
    }
  ],
  "summary": {
    "total_contingencies": <int>,
    "total_violations": <int>
  }
}

Process each image as one contingency. Return ONLY the JSON.
`

const gridPrompt = `
Analyze this screenshot of a PowerWorld Simulator power grid in Run Mode.
Extract information about the grid structure and power flow into this JSON format:

{
  "grid": {
    "name": "<string>",
    "status": "<string - e.g., 'Running', 'Idle'>",
    "areas": [
      {
        "name": "<string>",
        "buses": <int>,
        "generators": <int>,
        "loads": <int>
      }
    ],
    "summary": {
      "total_buses": <int>,
      "total_generators": <int>,
      "total_loads": <int>,
      "total_lines": <int>
    },
    "observations": [
      "<string - any notable observations about the grid state>"
    ]
  }
}

IMPORTANT:
- Identify the grid name if visible
- Count visible elements (buses, generators, loads, lines)
- Note the areas if visible (e.g., "Ativ Island", "West Side County")
- Add any observations about power flow, violations, or status

Return ONLY the JSON object, no additional text.
`
