package tasks

// The compiled-in catalog. A deployment can replace it wholesale via
// GRIDPILOT_TASK_CATALOG; the prompt text here mirrors the PowerWorld
// automation flows the backend ships with.
const defaultCatalogYAML = `
schema: gridpilot.tasks.v1
tasks:
  - name: agent
    description: Interactive demo-download session streamed to the client.
    image_retention: 3
    cost_budget: 10.0
    instructions: |
      You are automating a Windows desktop to download software.

      IMPORTANT GUIDELINES:
      - Always wait for windows and pages to fully load before interacting
      - Look for loading indicators and wait for them to disappear
      - Verify each action by checking on-screen confirmation
      - If a button or link is not visible, try scrolling
      - Take screenshots to verify your progress

      YOUR TASK:
      1. Open the web browser (Microsoft Edge or Chrome)
      2. Navigate to the PowerWorld download page
      3. Find and click the download link for the PowerWorld Simulator demo
      4. Confirm the download has started
    prompt: |
      Navigate to {target_url} and click the download link
      for the PowerWorld Simulator demo software.

      Steps:
      1. Open the web browser
      2. Navigate to the URL: {target_url}
      3. Wait for the page to load completely
      4. Find and click the download link on the page
      5. Confirm the download has started

  - name: buses
    description: Open the buses dialog and extract the bus table.
    schema: buses
    image_retention: 5
    cost_budget: 15.0
    instructions: |
      You are automating PowerWorld Simulator to extract bus data.

      TASK: Open the buses dialog and capture the data.

      STEPS:
      1. Look at the current screen
      2. If PowerWorld is not open or no grid is loaded:
         - Press Windows key and search for "B10Reserve.pwb"
         - Open the file in PowerWorld Simulator
      3. Once the grid is visible in PowerWorld:
         - Click "Network" in the top menu bar
         - Click "Buses" in the dropdown menu
      4. When the buses dialog opens:
         - Wait for it to fully load
         - Take a screenshot showing all bus information
         - The dialog should show bus names, voltages, and areas

      IMPORTANT:
      - Always wait for windows and dialogs to fully load before interacting
      - If PowerWorld is already open with the grid, skip to step 3
      - If the buses dialog is already open, just take a screenshot
      - The grid areas are "Ativ Island" and "West Side County"
      - Take a clear screenshot of the buses table/list
    prompt: |
      Look at the current desktop. Open PowerWorld Simulator if not already open,
      load the grid file B10Reserve.pwb if needed, then:
      1. Click on "Network" in the top menu
      2. Click on "Buses" in the dropdown
      3. When the buses dialog opens, take a screenshot of the bus data table.

      Take a final screenshot showing the buses information clearly.

  - name: contingency
    description: Run contingency analysis and capture per-contingency results.
    schema: contingency_multi
    multi_shot: true
    image_retention: 5
    cost_budget: 15.0
    instructions: |
      You are automating PowerWorld Simulator to run Contingency Analysis.

      TASK: Run contingency analysis and capture results for each contingency.

      STEPS:
      1. If PowerWorld is not open, press Windows key and search for "B10Reserve.pwb", open it
      2. Once grid is visible, click "Tools" > "Contingency Analysis"
      3. Click "Start Run" and wait for analysis to complete
      4. After completion, there are 3 tabs: Contingency, Options, Results
      5. Select the Contingency tab (if not already selected)
      6. For EACH contingency row:
         - Click on the row to select it
         - Click the "Results" tab
         - Take a screenshot of the results
         - Go back to "Contingency" tab
         - Repeat for the next row
      7. Do this for all contingency rows (Row 1, Row 2, Row 3, etc.)

      IMPORTANT:
      - Take a screenshot after viewing Results for EACH contingency
      - Wait for the analysis run to finish before reading results
    prompt: |
      Open PowerWorld Simulator if needed and load B10Reserve.pwb, then run
      Contingency Analysis from Tools > Contingency Analysis. Click Start Run,
      wait for completion, then for each contingency row select it, open the
      Results tab, and take a screenshot of the results before moving on.

  - name: grid
    description: Capture the grid overview in run mode.
    schema: grid
    image_retention: 5
    cost_budget: 15.0
    instructions: |
      You are automating PowerWorld Simulator to capture the grid overview.

      TASK: Show the grid in Run Mode and capture it.

      STEPS:
      1. If PowerWorld is not open, press Windows key and search for "B10Reserve.pwb", open it
      2. Switch to Run Mode so power flow is animated
      3. Make sure the full one-line diagram is visible
      4. Take a screenshot of the whole grid view

      IMPORTANT:
      - The grid areas are "Ativ Island" and "West Side County"
      - Include the whole diagram in the screenshot
    prompt: |
      Open PowerWorld Simulator if needed, load B10Reserve.pwb, switch to
      Run Mode, and take a clear screenshot of the full grid one-line diagram.
`
